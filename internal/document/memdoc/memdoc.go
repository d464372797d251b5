// Package memdoc provides a deterministic in-memory document.Document,
// used by tests and fixtures. Pages are described declaratively; rasterization
// composites placed images and word boxes onto a white canvas so that
// fingerprint-based components see stable, meaningful pixels.
package memdoc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/geometry"
)

// PlacedImage is an image positioned on a page.
type PlacedImage struct {
	BBox  geometry.Rect
	Image image.Image
}

// Page describes one in-memory page.
type Page struct {
	Size        document.PageSize
	Words       []document.Word
	Images      []PlacedImage
	Annotations []document.Annotation
	// Text overrides the page text; when empty, words are joined instead.
	Text string
}

// Document is an in-memory document.Document implementation.
type Document struct {
	pages  []Page
	closed bool
}

// New builds a Document from the given pages.
func New(pages ...Page) *Document {
	return &Document{pages: pages}
}

// PageCount implements document.Document.
func (d *Document) PageCount() int { return len(d.pages) }

// PageSize implements document.Document.
func (d *Document) PageSize(page int) (document.PageSize, error) {
	p, err := d.page(page)
	if err != nil {
		return document.PageSize{}, err
	}
	return p.Size, nil
}

// ImageRegions implements document.Document.
func (d *Document) ImageRegions(page int) ([]document.ImageRegion, error) {
	p, err := d.page(page)
	if err != nil {
		return nil, err
	}
	regions := make([]document.ImageRegion, 0, len(p.Images))
	for i, pi := range p.Images {
		regions = append(regions, document.ImageRegion{
			ID:       i,
			Page:     page,
			BBox:     pi.BBox,
			WidthPx:  pi.BBox.Width() * document.PixelsPerPoint,
			HeightPx: pi.BBox.Height() * document.PixelsPerPoint,
			Image:    pi.Image,
		})
	}
	return regions, nil
}

// Words implements document.Document.
func (d *Document) Words(page int) ([]document.Word, error) {
	p, err := d.page(page)
	if err != nil {
		return nil, err
	}
	return append([]document.Word(nil), p.Words...), nil
}

// Annotations implements document.Document.
func (d *Document) Annotations() ([]document.Annotation, error) {
	if d.closed {
		return nil, fmt.Errorf("memdoc: document closed")
	}
	var out []document.Annotation
	for i, p := range d.pages {
		for _, a := range p.Annotations {
			a.Page = i
			out = append(out, a)
		}
	}
	return out, nil
}

// Text implements document.Document.
func (d *Document) Text(page int, clip *geometry.Rect) (string, error) {
	p, err := d.page(page)
	if err != nil {
		return "", err
	}
	if clip == nil && p.Text != "" {
		return p.Text, nil
	}
	var words []string
	for _, w := range p.Words {
		if clip != nil && !clip.Intersects(w.BBox) {
			continue
		}
		words = append(words, w.Text)
	}
	return strings.Join(words, " "), nil
}

// Rasterize implements document.Document.
func (d *Document) Rasterize(page int, scale float64) (image.Image, error) {
	p, err := d.page(page)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("memdoc: invalid scale %v", scale)
	}

	w := int(p.Size.Width * scale)
	h := int(p.Size.Height * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	// Word boxes render as gray blocks: enough texture for perceptual
	// fingerprints without a font.
	gray := image.NewUniform(color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF})
	for _, word := range p.Words {
		r := word.BBox.Scale(scale).ToImageRect(canvas.Bounds())
		draw.Draw(canvas, r, gray, image.Point{}, draw.Src)
	}

	for _, pi := range p.Images {
		r := pi.BBox.Scale(scale).ToImageRect(canvas.Bounds())
		if r.Empty() || pi.Image == nil {
			continue
		}
		resized := imaging.Resize(pi.Image, r.Dx(), r.Dy(), imaging.Lanczos)
		draw.Draw(canvas, r, resized, image.Point{}, draw.Over)
	}
	return canvas, nil
}

// Close implements document.Document.
func (d *Document) Close() error {
	d.closed = true
	return nil
}

func (d *Document) page(page int) (*Page, error) {
	if d.closed {
		return nil, fmt.Errorf("memdoc: document closed")
	}
	if page < 0 || page >= len(d.pages) {
		return nil, fmt.Errorf("memdoc: page %d out of range [0,%d)", page, len(d.pages))
	}
	return &d.pages[page], nil
}
