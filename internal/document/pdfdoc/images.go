package pdfdoc

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/geometry"
)

// ImageRegions implements document.Document. Embedded images are extracted
// with pdfcpu, which reports the pixel data but not the placement on the
// page, so every region's box is the page box. Results are cached per page.
func (d *Document) ImageRegions(page int) ([]document.ImageRegion, error) {
	p, err := d.page(page)
	if err != nil {
		return nil, err
	}
	pageW, pageH := pageDimensions(p)

	d.mu.Lock()
	images, ok := d.images[page]
	d.mu.Unlock()
	if !ok {
		images, err = d.extractPageImages(page)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.images[page] = images
		d.mu.Unlock()
	}

	regions := make([]document.ImageRegion, 0, len(images))
	for i, img := range images {
		bounds := img.Bounds()
		regions = append(regions, document.ImageRegion{
			ID:       i,
			Page:     page,
			BBox:     geometry.NewRect(0, 0, pageW, pageH),
			WidthPx:  float64(bounds.Dx()),
			HeightPx: float64(bounds.Dy()),
			Image:    img,
		})
	}
	return regions, nil
}

// extractPageImages pulls one page's embedded images into a scratch
// directory and decodes them, ordered by pdfcpu's image index.
func (d *Document) extractPageImages(page int) ([]image.Image, error) {
	dir, err := tempImageDir()
	if err != nil {
		return nil, err
	}
	defer removeAll(dir)

	pageStr := strconv.Itoa(page + 1)
	if err := api.ExtractImagesFile(d.path, dir, []string{pageStr}, nil); err != nil {
		return nil, fmt.Errorf("pdfdoc: extract images from page %d: %w", page, err)
	}

	type indexed struct {
		idx int
		img image.Image
	}
	var found []indexed
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		idx, perr := parseImageIndex(info.Name())
		if perr != nil {
			return nil
		}
		img, lerr := loadImageFile(path)
		if lerr != nil || img == nil {
			return nil
		}
		found = append(found, indexed{idx: idx, img: img})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: collect extracted images: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].idx < found[j].idx })
	images := make([]image.Image, 0, len(found))
	for _, f := range found {
		images = append(images, f.img)
	}
	return images, nil
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// parseImageIndex pulls the image index out of pdfcpu's extracted filename
// format: page_<num>_image_<idx>.<ext> (variants include an Im<idx> object
// name instead of a plain index).
func parseImageIndex(name string) (int, error) {
	if !strings.HasPrefix(name, "page_") {
		return 0, errors.New("not an extracted page image")
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	last := parts[len(parts)-1]
	if idx, err := strconv.Atoi(last); err == nil {
		return idx, nil
	}
	// Object-name variant, e.g. page_1_Im0.png.
	digits := strings.TrimLeftFunc(last, func(r rune) bool { return r < '0' || r > '9' })
	if idx, err := strconv.Atoi(digits); err == nil {
		return idx, nil
	}
	return 0, errors.New("no image index in filename")
}
