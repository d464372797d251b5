package render

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/document/memdoc"
	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/geometry"
	"github.com/redline-tools/redline/internal/verify"
	"github.com/redline-tools/redline/internal/worddiff"
)

func testDoc() *memdoc.Document {
	return memdoc.New(memdoc.Page{
		Size: document.PageSize{Width: 200, Height: 100},
		Words: []document.Word{
			{Text: "hello", BBox: geometry.NewRect(10, 40, 50, 50)},
		},
	})
}

func TestWordOverlay(t *testing.T) {
	r := New(Config{Scale: 1.0, FillAlpha: 128})
	regions := []worddiff.MergedRegion{
		{
			BBox:      geometry.NewRect(10, 40, 50, 50),
			Change:    worddiff.ChangeMissing,
			Highlight: worddiff.HighlightYellow,
			Texts:     []string{"hello"},
		},
	}

	ov, err := r.WordOverlay(testDoc(), 0, regions)
	require.NoError(t, err)
	assert.Equal(t, 0, ov.Skipped)
	assert.Equal(t, image.Rect(0, 0, 200, 100), ov.Image.Bounds())

	// The fill tints the region away from the plain rasterization.
	plain, err := testDoc().Rasterize(0, 1.0)
	require.NoError(t, err)
	assert.NotEqual(t, plain.At(30, 45), ov.Image.At(30, 45))
}

func TestWordOverlaySkipsUndrawable(t *testing.T) {
	r := New(DefaultConfig())
	regions := []worddiff.MergedRegion{
		// Entirely off the page.
		{
			BBox:      geometry.NewRect(500, 500, 600, 600),
			Change:    worddiff.ChangeExtra,
			Highlight: worddiff.HighlightGreen,
		},
		// No highlight color to draw with.
		{
			BBox:   geometry.NewRect(10, 10, 20, 20),
			Change: worddiff.ChangeMissing,
		},
	}

	ov, err := r.WordOverlay(testDoc(), 0, regions)
	require.NoError(t, err)
	assert.Equal(t, 2, ov.Skipped)
}

func TestImageOverlaySides(t *testing.T) {
	d := 3
	matches := []engine.ProductMatch{
		{
			Ref:      &engine.RegionInfo{ID: 0, BBox: geometry.NewRect(10, 10, 60, 40)},
			Final:    &engine.RegionInfo{ID: 0, BBox: geometry.NewRect(20, 20, 70, 50)},
			Distance: &d,
			Status:   engine.StatusMatched,
		},
		{
			Ref:    &engine.RegionInfo{ID: 1, BBox: geometry.NewRect(100, 10, 150, 40)},
			Status: engine.StatusRefOnly,
		},
	}

	r := New(Config{Scale: 1.0})
	refSide, err := r.ImageOverlay(testDoc(), 0, matches, false)
	require.NoError(t, err)
	assert.Equal(t, 0, refSide.Skipped)

	// The final side has no drawable entry for the ref-only match; that is
	// not a skip, just absence.
	finalSide, err := r.ImageOverlay(testDoc(), 0, matches, true)
	require.NoError(t, err)
	assert.Equal(t, 0, finalSide.Skipped)
}

func TestAnnotationOverlayFiltersByPage(t *testing.T) {
	results := []engine.AnnotationResult{
		{Page: 0, Text: "here", BBox: geometry.NewRect(10, 10, 30, 30), Check: verify.Check{Status: verify.StatusImplemented}},
		{Page: 3, Text: "elsewhere", BBox: geometry.NewRect(10, 10, 30, 30), Check: verify.Check{Status: verify.StatusUnclear}},
	}

	ov, err := New(Config{Scale: 1.0}).AnnotationOverlay(testDoc(), 0, results)
	require.NoError(t, err)
	assert.Equal(t, 0, ov.Skipped)
}

func TestRasterizeFailurePropagates(t *testing.T) {
	doc := testDoc()
	require.NoError(t, doc.Close())

	_, err := New(DefaultConfig()).WordOverlay(doc, 0, nil)
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.png")

	ov, err := New(Config{Scale: 1.0}).WordOverlay(testDoc(), 0, nil)
	require.NoError(t, err)
	require.NoError(t, SavePNG(path, ov.Image))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
