package pdfdoc

import (
	"testing"

	"github.com/dslipak/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline-tools/redline/internal/geometry"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("testdata/does-not-exist.pdf")
	assert.Error(t, err)
}

func TestFlipRect(t *testing.T) {
	// PDF rect (10, 700, 110, 750) on a 792pt page: near the top visually.
	r := flipRect(10, 700, 110, 750, 792)
	assert.Equal(t, geometry.NewRect(10, 42, 110, 92), r)

	// Reversed corners are normalized.
	r = flipRect(110, 750, 10, 700, 792)
	assert.Equal(t, geometry.NewRect(10, 42, 110, 92), r)
}

func TestWordsFromRow(t *testing.T) {
	chunk := func(s string, x, w float64) pdf.Text {
		return pdf.Text{S: s, X: x, Y: 100, W: w, FontSize: 12}
	}

	t.Run("adjacent chunks glue into one word", func(t *testing.T) {
		words := wordsFromRow([]pdf.Text{
			chunk("He", 10, 12),
			chunk("llo", 22, 18),
		}, 200)
		require.Len(t, words, 1)
		assert.Equal(t, "Hello", words[0].Text)
		assert.Equal(t, geometry.NewRect(10, 88, 40, 100), words[0].BBox)
	})

	t.Run("whitespace chunk splits words", func(t *testing.T) {
		words := wordsFromRow([]pdf.Text{
			chunk("Hello", 10, 30),
			chunk(" ", 40, 4),
			chunk("world", 44, 30),
		}, 200)
		require.Len(t, words, 2)
		assert.Equal(t, "Hello", words[0].Text)
		assert.Equal(t, "world", words[1].Text)
	})

	t.Run("wide gap splits words", func(t *testing.T) {
		words := wordsFromRow([]pdf.Text{
			chunk("left", 10, 24),
			chunk("right", 60, 30),
		}, 200)
		require.Len(t, words, 2)
	})

	t.Run("small kerning gap does not split", func(t *testing.T) {
		words := wordsFromRow([]pdf.Text{
			chunk("ker", 10, 18),
			chunk("ning", 29, 24),
		}, 200)
		require.Len(t, words, 1)
		assert.Equal(t, "kerning", words[0].Text)
	})

	t.Run("empty row", func(t *testing.T) {
		assert.Empty(t, wordsFromRow(nil, 200))
		assert.Empty(t, wordsFromRow([]pdf.Text{chunk("  ", 10, 8)}, 200))
	})
}

func TestParseImageIndex(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"page_1_image_1.png", 1, false},
		{"page_12_image_3.jpg", 3, false},
		{"page_1_Im0.png", 0, false},
		{"page_2_Im12.jpg", 12, false},
		{"thumbnail.png", 0, true},
		{"page_x.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseImageIndex(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
