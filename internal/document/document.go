// Package document defines the access layer the comparison engine consumes:
// structured extraction of pages, positioned words, embedded images, textual
// annotations, and page rasterization. Implementations wrap a concrete file
// format; the engine itself never touches format-specific types.
package document

import (
	"errors"
	"image"

	"github.com/redline-tools/redline/internal/geometry"
)

// ErrNotSupported is returned by implementations that cannot provide a
// particular extraction (for example positioned image bounding boxes in a
// format that does not expose them). Callers degrade gracefully.
var ErrNotSupported = errors.New("document: operation not supported")

// PageSize is a page's dimensions in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageRegion is one embedded image or vector-graphic region extracted from
// a page, immutable after extraction. Pixel dimensions are derived at 96 DPI
// from the placed bounding box.
type ImageRegion struct {
	ID       int           `json:"id"`
	Page     int           `json:"page"`
	BBox     geometry.Rect `json:"bbox"`
	WidthPx  float64       `json:"width_px"`
	HeightPx float64       `json:"height_px"`
	// Image holds the rasterized region pixels for fingerprinting.
	Image image.Image `json:"-"`
}

// Word is one extracted word with its position on the page.
type Word struct {
	Text string        `json:"text"`
	BBox geometry.Rect `json:"bbox"`
}

// Annotation is a textual annotation (popup, sticky note, free text)
// found in a document.
type Annotation struct {
	Page int           `json:"page"`
	Text string        `json:"text"`
	BBox geometry.Rect `json:"bbox"`
}

// Document is an open handle on a parsed document. Implementations are not
// required to be safe for concurrent use; concurrent comparison runs must
// each open their own handles.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int
	// PageSize returns the dimensions of the given zero-based page.
	PageSize(page int) (PageSize, error)
	// ImageRegions extracts the image regions of the given page, with pixels.
	ImageRegions(page int) ([]ImageRegion, error)
	// Words extracts the positioned words of the given page in reading order.
	Words(page int) ([]Word, error)
	// Annotations extracts all textual annotations in the document.
	Annotations() ([]Annotation, error)
	// Text returns the plain text of a page, optionally clipped to a region.
	Text(page int, clip *geometry.Rect) (string, error)
	// Rasterize renders the page to pixels at the given scale factor
	// (1.0 = 72 DPI). The scale must be consistent across the two documents
	// of a comparison for fingerprints to be comparable.
	Rasterize(page int, scale float64) (image.Image, error)
	// Close releases any resources held by the handle.
	Close() error
}

// PixelsPerPoint converts point sizes to pixels at 96 DPI.
const PixelsPerPoint = 96.0 / 72.0
