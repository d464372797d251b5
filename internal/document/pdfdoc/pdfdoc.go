// Package pdfdoc implements document.Document for PDF files. Text and
// annotations come from the vector layer (dslipak/pdf); embedded images are
// pulled with pdfcpu. pdfcpu does not report image placement, so image
// region boxes degrade to the page box and rasterization is a composite
// approximation, which is sufficient for perceptual fingerprints.
package pdfdoc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/geometry"
)

// Document is a PDF-backed document.Document.
type Document struct {
	path      string
	reader    *pdf.Reader
	pageCount int

	// decrypted holds the path of a temporary decrypted copy, removed on
	// Close.
	decrypted string

	mu     sync.Mutex
	closed bool
	// images caches extracted embedded images per zero-based page, filled
	// lazily on first use.
	images map[int][]image.Image
	// words caches extracted positioned words per zero-based page.
	words map[int][]document.Word
}

// Open opens a PDF file. Encrypted files are decrypted into a temporary copy
// first; the copy is removed on Close.
func Open(path string) (*Document, error) {
	count, err := api.PageCountFile(path)
	decrypted := ""
	if err != nil {
		// Possibly encrypted. Try a decrypted temporary copy.
		tmp, derr := decryptCopy(path)
		if derr != nil {
			return nil, fmt.Errorf("pdfdoc: open %s: %w", path, err)
		}
		decrypted = tmp
		path = tmp
		count, err = api.PageCountFile(path)
		if err != nil {
			os.Remove(tmp)
			return nil, fmt.Errorf("pdfdoc: open decrypted copy: %w", err)
		}
	}
	if count < 1 {
		if decrypted != "" {
			os.Remove(decrypted)
		}
		return nil, fmt.Errorf("pdfdoc: %s has no pages", path)
	}

	reader, err := pdf.Open(path)
	if err != nil {
		if decrypted != "" {
			os.Remove(decrypted)
		}
		return nil, fmt.Errorf("pdfdoc: read %s: %w", path, err)
	}

	return &Document{
		path:      path,
		reader:    reader,
		pageCount: count,
		decrypted: decrypted,
		images:    make(map[int][]image.Image),
		words:     make(map[int][]document.Word),
	}, nil
}

func decryptCopy(path string) (string, error) {
	f, err := os.CreateTemp("", "redline-decrypt-*.pdf")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	f.Close()
	if err := api.DecryptFile(path, tmp, nil); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// Path returns the file the document reads from.
func (d *Document) Path() string { return d.path }

// PageCount implements document.Document.
func (d *Document) PageCount() int { return d.pageCount }

// PageSize implements document.Document.
func (d *Document) PageSize(page int) (document.PageSize, error) {
	p, err := d.page(page)
	if err != nil {
		return document.PageSize{}, err
	}
	w, h := pageDimensions(p)
	return document.PageSize{Width: w, Height: h}, nil
}

// Rasterize implements document.Document. Without a raster engine the page
// is approximated: extracted images composited over a white canvas with word
// boxes drawn as gray blocks. Coarse, but stable, which is what the
// perceptual fingerprint and the locator need.
func (d *Document) Rasterize(page int, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("pdfdoc: invalid scale %v", scale)
	}
	size, err := d.PageSize(page)
	if err != nil {
		return nil, err
	}
	regions, err := d.ImageRegions(page)
	if err != nil {
		return nil, err
	}
	words, err := d.Words(page)
	if err != nil {
		return nil, err
	}

	w := int(size.Width * scale)
	h := int(size.Height * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for _, r := range regions {
		rect := r.BBox.Scale(scale).ToImageRect(canvas.Bounds())
		if rect.Empty() || r.Image == nil {
			continue
		}
		resized := imaging.Resize(r.Image, rect.Dx(), rect.Dy(), imaging.Lanczos)
		draw.Draw(canvas, rect, resized, image.Point{}, draw.Over)
	}

	gray := image.NewUniform(color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF})
	for _, word := range words {
		rect := word.BBox.Scale(scale).ToImageRect(canvas.Bounds())
		draw.Draw(canvas, rect, gray, image.Point{}, draw.Src)
	}
	return canvas, nil
}

// Close implements document.Document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.decrypted != "" {
		return os.Remove(d.decrypted)
	}
	return nil
}

// page returns the 1-based dslipak page for a 0-based index.
func (d *Document) page(page int) (pdf.Page, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return pdf.Page{}, fmt.Errorf("pdfdoc: document closed")
	}
	if page < 0 || page >= d.pageCount {
		return pdf.Page{}, fmt.Errorf("pdfdoc: page %d out of range [0,%d)", page, d.pageCount)
	}
	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return pdf.Page{}, fmt.Errorf("pdfdoc: page %d unreadable", page)
	}
	return p, nil
}

// pageDimensions walks the page's MediaBox, following Parent links when the
// page inherits it. Falls back to US letter when absent.
func pageDimensions(p pdf.Page) (float64, float64) {
	box := findMediaBox(p.V)
	if box.IsNull() || box.Len() < 4 {
		return 612, 792
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	w := x1 - x0
	h := y1 - y0
	if w <= 0 || h <= 0 {
		return 612, 792
	}
	return w, h
}

func findMediaBox(v pdf.Value) pdf.Value {
	for !v.IsNull() {
		box := v.Key("MediaBox")
		if !box.IsNull() {
			return box
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// flipRect converts a PDF bottom-left-origin rectangle to the top-left
// coordinate space used everywhere else.
func flipRect(x0, y0, x1, y1, pageHeight float64) geometry.Rect {
	return geometry.NewRect(x0, pageHeight-y1, x1, pageHeight-y0)
}

var _ document.Document = (*Document)(nil)

// tempImageDir creates the scratch directory pdfcpu extracts into.
func tempImageDir() (string, error) {
	dir, err := os.MkdirTemp("", "redline-extract-*")
	if err != nil {
		return "", fmt.Errorf("pdfdoc: create temp dir: %w", err)
	}
	return dir, nil
}

func removeAll(dir string) {
	_ = os.RemoveAll(filepath.Clean(dir))
}
