package memdoc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/geometry"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sampleDoc() *Document {
	return New(
		Page{
			Size: document.PageSize{Width: 200, Height: 100},
			Words: []document.Word{
				{Text: "hello", BBox: geometry.NewRect(10, 10, 40, 20)},
				{Text: "world", BBox: geometry.NewRect(50, 10, 90, 20)},
				{Text: "footer", BBox: geometry.NewRect(10, 80, 50, 95)},
			},
			Images: []PlacedImage{
				{BBox: geometry.NewRect(100, 30, 180, 70), Image: solid(80, 40, color.Black)},
			},
			Annotations: []document.Annotation{
				{Text: "check this", BBox: geometry.NewRect(10, 10, 30, 30)},
			},
		},
		Page{
			Size: document.PageSize{Width: 200, Height: 100},
			Text: "overridden page text",
			Annotations: []document.Annotation{
				{Text: "second page note", BBox: geometry.NewRect(5, 5, 25, 25)},
			},
		},
	)
}

func TestPageCountAndSize(t *testing.T) {
	doc := sampleDoc()
	assert.Equal(t, 2, doc.PageCount())

	size, err := doc.PageSize(0)
	require.NoError(t, err)
	assert.Equal(t, document.PageSize{Width: 200, Height: 100}, size)

	_, err = doc.PageSize(2)
	assert.Error(t, err)
	_, err = doc.PageSize(-1)
	assert.Error(t, err)
}

func TestImageRegions(t *testing.T) {
	doc := sampleDoc()
	regions, err := doc.ImageRegions(0)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, 0, r.ID)
	assert.Equal(t, 0, r.Page)
	assert.Equal(t, geometry.NewRect(100, 30, 180, 70), r.BBox)
	assert.InDelta(t, 80*document.PixelsPerPoint, r.WidthPx, 1e-9)
	assert.InDelta(t, 40*document.PixelsPerPoint, r.HeightPx, 1e-9)
	assert.NotNil(t, r.Image)

	empty, err := doc.ImageRegions(1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWordsReturnsCopy(t *testing.T) {
	doc := sampleDoc()
	words, err := doc.Words(0)
	require.NoError(t, err)
	require.Len(t, words, 3)

	words[0].Text = "mutated"
	again, err := doc.Words(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", again[0].Text)
}

func TestAnnotationsCarryPageIndex(t *testing.T) {
	doc := sampleDoc()
	anns, err := doc.Annotations()
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, 0, anns[0].Page)
	assert.Equal(t, "check this", anns[0].Text)
	assert.Equal(t, 1, anns[1].Page)
	assert.Equal(t, "second page note", anns[1].Text)
}

func TestText(t *testing.T) {
	doc := sampleDoc()

	t.Run("joins words", func(t *testing.T) {
		text, err := doc.Text(0, nil)
		require.NoError(t, err)
		assert.Equal(t, "hello world footer", text)
	})

	t.Run("override wins without clip", func(t *testing.T) {
		text, err := doc.Text(1, nil)
		require.NoError(t, err)
		assert.Equal(t, "overridden page text", text)
	})

	t.Run("clip filters by intersection", func(t *testing.T) {
		clip := geometry.NewRect(0, 0, 200, 25)
		text, err := doc.Text(0, &clip)
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
	})

	t.Run("clip outside all words", func(t *testing.T) {
		clip := geometry.NewRect(150, 90, 199, 99)
		text, err := doc.Text(0, &clip)
		require.NoError(t, err)
		assert.Equal(t, "", text)
	})
}

func TestRasterize(t *testing.T) {
	doc := sampleDoc()

	img, err := doc.Rasterize(0, 1.0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	// Deterministic: the same page renders identically each time.
	again, err := doc.Rasterize(0, 1.0)
	require.NoError(t, err)
	assert.Equal(t, img, again)

	// Scale changes the canvas size proportionally.
	half, err := doc.Rasterize(0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), half.Bounds())

	// The placed image darkens its region; a corner stays white.
	rgba, ok := img.(*image.RGBA)
	require.True(t, ok)
	r, g, b, _ := rgba.At(140, 50).RGBA()
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	r, _, _, _ = rgba.At(199, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	_, err = doc.Rasterize(0, 0)
	assert.Error(t, err)
	_, err = doc.Rasterize(9, 1.0)
	assert.Error(t, err)
}

func TestClosedDocument(t *testing.T) {
	doc := sampleDoc()
	require.NoError(t, doc.Close())

	_, err := doc.PageSize(0)
	assert.Error(t, err)
	_, err = doc.Words(0)
	assert.Error(t, err)
	_, err = doc.Annotations()
	assert.Error(t, err)
	_, err = doc.Text(0, nil)
	assert.Error(t, err)
	_, err = doc.Rasterize(0, 1.0)
	assert.Error(t, err)
}
