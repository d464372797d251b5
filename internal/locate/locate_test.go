package locate

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/document/memdoc"
	"github.com/redline-tools/redline/internal/geometry"
)

func horizontalGradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func verticalGradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := uint8(y * 255 / (h - 1))
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func checkerboard(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			if (x/8+y/8)%2 == 0 {
				v = 0
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func page(text string, img image.Image) memdoc.Page {
	return memdoc.Page{
		Size: document.PageSize{Width: 200, Height: 200},
		Images: []memdoc.PlacedImage{
			{BBox: geometry.NewRect(20, 20, 180, 180), Image: img},
		},
		Text: text,
	}
}

func TestScore(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		distance  int
		textRatio float64
		want      float64
	}{
		{"perfect match", 0, 1.0, 1.0},
		{"image only", 0, 0.0, 0.7},
		{"text only", 64, 1.0, 0.3},
		{"near duplicate", 2, 0.9, 0.7*(62.0/64.0) + 0.3*0.9},
		{"nothing matches", 64, 0.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.distance, tt.textRatio, cfg), 1e-9)
		})
	}
}

func TestScoreClampsDistance(t *testing.T) {
	// Distances beyond the fingerprint range must not push the image term
	// negative and drag down an otherwise strong text signal.
	got := Score(200, 1.0, DefaultConfig())
	assert.InDelta(t, 0.3, got, 1e-9)
}

func TestFindPagePicksMatchingPage(t *testing.T) {
	ref := memdoc.New(
		page("installation guide for model A", horizontalGradient(160, 160)),
		page("safety instructions chapter two", verticalGradient(160, 160)),
		page("warranty and service terms", checkerboard(160, 160)),
	)
	target := memdoc.New(
		page("safety instructions chapter two", verticalGradient(160, 160)),
	)

	m, err := FindPage(ref, target, 0, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Page)
	assert.Greater(t, m.Confidence, 0.9)
}

func TestFindPageSinglePage(t *testing.T) {
	ref := memdoc.New(page("only page", horizontalGradient(160, 160)))
	target := memdoc.New(page("only page", horizontalGradient(160, 160)))

	m, err := FindPage(ref, target, 0, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Page)
	assert.Greater(t, m.Confidence, 0.95)
}

func TestFindPageTextPrefixBound(t *testing.T) {
	// Pages that differ only beyond the prefix bound look identical to the
	// text signal, so the image signal decides.
	cfg := DefaultConfig()
	cfg.TextPrefixRunes = 10

	common := "shared lead-in text "
	ref := memdoc.New(
		page(common+"alpha", horizontalGradient(160, 160)),
		page(common+"omega", verticalGradient(160, 160)),
	)
	target := memdoc.New(page(common+"omega", verticalGradient(160, 160)))

	m, err := FindPage(ref, target, 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Page)
}

func TestFindPageTargetPageOutOfRange(t *testing.T) {
	ref := memdoc.New(page("a", horizontalGradient(160, 160)))
	target := memdoc.New(page("b", verticalGradient(160, 160)))

	_, err := FindPage(ref, target, 5, DefaultConfig())
	assert.Error(t, err)
}

func TestPrefixRunes(t *testing.T) {
	assert.Equal(t, "héll", prefixRunes("héllo", 4))
	assert.Equal(t, "hé", prefixRunes("hé", 10))
	assert.Equal(t, "hé", prefixRunes("hé", 0))
}
