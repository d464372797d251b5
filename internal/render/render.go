// Package render draws comparison results onto rasterized pages as PNG
// overlays: translucent fills for word-diff regions, outlined boxes for
// image matches and annotation verdicts.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/verify"
	"github.com/redline-tools/redline/internal/worddiff"
)

// Config controls overlay rendering.
type Config struct {
	// Scale is the rasterization scale for the page background.
	Scale float64 `mapstructure:"scale" yaml:"scale" json:"scale"`
	// FillAlpha is the opacity of highlight fills, 0..255.
	FillAlpha uint8 `mapstructure:"fill_alpha" yaml:"fill_alpha" json:"fill_alpha"`
}

// DefaultConfig returns the renderer defaults.
func DefaultConfig() Config {
	return Config{Scale: 2.0, FillAlpha: 96}
}

// Renderer draws overlays. The zero value is not usable; construct with New.
type Renderer struct {
	cfg  Config
	face font.Face
}

// New builds a Renderer.
func New(cfg Config) *Renderer {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultConfig().Scale
	}
	return &Renderer{cfg: cfg, face: basicfont.Face7x13}
}

// Overlay is one rendered page plus the count of regions that could not be
// drawn and were skipped.
type Overlay struct {
	Page    int
	Image   image.Image
	Skipped int
}

var (
	yellowFill = color.RGBA{R: 0xFF, G: 0xE0, B: 0x00}
	greenFill  = color.RGBA{R: 0x30, G: 0xC0, B: 0x40}
	redLine    = color.RGBA{R: 0xD0, G: 0x20, B: 0x20, A: 0xFF}
	blueLine   = color.RGBA{R: 0x20, G: 0x50, B: 0xD0, A: 0xFF}
	grayLine   = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	labelColor = color.RGBA{A: 0xFF}
)

// WordOverlay rasterizes one page and fills every merged diff region with
// its highlight color. Regions that cannot be drawn are skipped and counted,
// not fatal.
func (r *Renderer) WordOverlay(doc document.Document, page int, regions []worddiff.MergedRegion) (*Overlay, error) {
	canvas, err := r.pageCanvas(doc, page)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for _, region := range regions {
		fill, ok := fillFor(region.Highlight)
		if !ok {
			skipped++
			slog.Warn("skipping region with unknown highlight", "page", page, "highlight", region.Highlight)
			continue
		}
		rect := region.BBox.Scale(r.cfg.Scale).ToImageRect(canvas.Bounds())
		if rect.Empty() {
			skipped++
			slog.Warn("skipping off-page region", "page", page, "bbox", region.BBox)
			continue
		}
		r.fillRect(canvas, rect, fill)
		r.label(canvas, rect, string(region.Change))
	}
	return &Overlay{Page: page, Image: canvas, Skipped: skipped}, nil
}

// ImageOverlay rasterizes one page and outlines each region according to its
// match status. side selects whether the reference or the final regions of
// each ProductMatch are drawn.
func (r *Renderer) ImageOverlay(doc document.Document, page int, matches []engine.ProductMatch, final bool) (*Overlay, error) {
	canvas, err := r.pageCanvas(doc, page)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for _, m := range matches {
		info := m.Ref
		if final {
			info = m.Final
		}
		if info == nil {
			continue
		}
		rect := info.BBox.Scale(r.cfg.Scale).ToImageRect(canvas.Bounds())
		if rect.Empty() {
			skipped++
			slog.Warn("skipping off-page image region", "page", page, "id", info.ID)
			continue
		}

		line := grayLine
		label := string(m.Status)
		switch m.Status {
		case engine.StatusMatched:
			line = blueLine
			if m.Distance != nil {
				label = fmt.Sprintf("matched d=%d", *m.Distance)
			}
		case engine.StatusUnmatchedPair:
			line = redLine
			if m.Distance != nil {
				label = fmt.Sprintf("mismatch d=%d", *m.Distance)
			}
		case engine.StatusRefOnly, engine.StatusFinalOnly:
			line = redLine
		}
		r.outlineRect(canvas, rect, line)
		r.label(canvas, rect, label)
	}
	return &Overlay{Page: page, Image: canvas, Skipped: skipped}, nil
}

// AnnotationOverlay rasterizes one page of the reference document and marks
// each verified annotation with a verdict-colored box.
func (r *Renderer) AnnotationOverlay(doc document.Document, page int, results []engine.AnnotationResult) (*Overlay, error) {
	canvas, err := r.pageCanvas(doc, page)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for _, res := range results {
		if res.Page != page {
			continue
		}
		rect := res.BBox.Scale(r.cfg.Scale).ToImageRect(canvas.Bounds())
		if rect.Empty() {
			skipped++
			slog.Warn("skipping off-page annotation", "page", page, "text", res.Text)
			continue
		}

		line := grayLine
		switch res.Check.Status {
		case verify.StatusImplemented:
			line = blueLine
		case verify.StatusNotImplemented:
			line = redLine
		case verify.StatusPartial:
			line = color.RGBA{R: 0xE0, G: 0x80, B: 0x00, A: 0xFF}
		}
		r.outlineRect(canvas, rect, line)
		r.label(canvas, rect, string(res.Check.Status))
	}
	return &Overlay{Page: page, Image: canvas, Skipped: skipped}, nil
}

// SavePNG writes an overlay to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("render: encode %s: %w", path, err)
	}
	return f.Close()
}

func (r *Renderer) pageCanvas(doc document.Document, page int) (*image.RGBA, error) {
	base, err := doc.Rasterize(page, r.cfg.Scale)
	if err != nil {
		return nil, fmt.Errorf("render: rasterize page %d: %w", page, err)
	}
	canvas := image.NewRGBA(base.Bounds())
	draw.Draw(canvas, canvas.Bounds(), base, base.Bounds().Min, draw.Src)
	return canvas, nil
}

func fillFor(h worddiff.Highlight) (color.RGBA, bool) {
	switch h {
	case worddiff.HighlightYellow:
		return yellowFill, true
	case worddiff.HighlightGreen:
		return greenFill, true
	default:
		return color.RGBA{}, false
	}
}

func (r *Renderer) fillRect(canvas *image.RGBA, rect image.Rectangle, c color.RGBA) {
	c.A = r.cfg.FillAlpha
	// Premultiply so draw.Over blends instead of replacing.
	c.R = uint8(uint16(c.R) * uint16(c.A) / 0xFF)
	c.G = uint8(uint16(c.G) * uint16(c.A) / 0xFF)
	c.B = uint8(uint16(c.B) * uint16(c.A) / 0xFF)
	draw.Draw(canvas, rect, &image.Uniform{c}, image.Point{}, draw.Over)
}

func (r *Renderer) outlineRect(canvas *image.RGBA, rect image.Rectangle, c color.RGBA) {
	const w = 2
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+w),
		image.Rect(rect.Min.X, rect.Max.Y-w, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+w, rect.Max.Y),
		image.Rect(rect.Max.X-w, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(canvas, e.Intersect(canvas.Bounds()), &image.Uniform{c}, image.Point{}, draw.Src)
	}
}

// label draws text just above the rect, inside the canvas.
func (r *Renderer) label(canvas *image.RGBA, rect image.Rectangle, text string) {
	if text == "" {
		return
	}
	y := rect.Min.Y - 2
	if y < r.face.Metrics().Height.Ceil() {
		y = rect.Min.Y + r.face.Metrics().Height.Ceil()
	}
	d := &font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{labelColor},
		Face: r.face,
		Dot:  fixed.P(rect.Min.X, y),
	}
	d.DrawString(text)
}
