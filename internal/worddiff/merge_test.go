package worddiff

import (
	"testing"

	"github.com/redline-tools/redline/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flaggedToken(text string, x0, y0, x1, y1 float64, change ChangeType, hl Highlight) Token {
	return Token{
		Text:      text,
		BBox:      geometry.NewRect(x0, y0, x1, y1),
		Change:    change,
		Highlight: hl,
	}
}

func TestMergeAdjacentSameRow(t *testing.T) {
	tokens := []Token{
		flaggedToken("prix", 10, 100, 40, 112, ChangeMissing, HighlightYellow),
		flaggedToken("total", 45, 100, 85, 112, ChangeMissing, HighlightYellow),
		flaggedToken("HT", 90, 100, 110, 112, ChangeMissing, HighlightYellow),
	}

	regions := MergeAdjacent(tokens, DefaultMergeConfig())
	require.Len(t, regions, 1)
	assert.Equal(t, []string{"prix", "total", "HT"}, regions[0].Texts)
	assert.Equal(t, geometry.NewRect(10, 100, 110, 112), regions[0].BBox)
	assert.Equal(t, ChangeMissing, regions[0].Change)
	assert.Equal(t, "prix total HT", regions[0].Text())
}

func TestMergeSplitsOnWideGap(t *testing.T) {
	tokens := []Token{
		flaggedToken("gauche", 10, 100, 50, 112, ChangeMissing, HighlightYellow),
		flaggedToken("droite", 200, 100, 240, 112, ChangeMissing, HighlightYellow),
	}

	regions := MergeAdjacent(tokens, DefaultMergeConfig())
	assert.Len(t, regions, 2)
}

func TestMergeSplitsOnDifferentRow(t *testing.T) {
	tokens := []Token{
		flaggedToken("haut", 10, 100, 50, 112, ChangeMissing, HighlightYellow),
		flaggedToken("bas", 10, 120, 40, 132, ChangeMissing, HighlightYellow),
	}

	regions := MergeAdjacent(tokens, DefaultMergeConfig())
	assert.Len(t, regions, 2)
}

func TestMergeSplitsOnDifferentClassification(t *testing.T) {
	tokens := []Token{
		flaggedToken("ancien", 10, 100, 50, 112, ChangeMissing, HighlightYellow),
		flaggedToken("nouveau", 55, 100, 110, 112, ChangeExtra, HighlightGreen),
	}

	regions := MergeAdjacent(tokens, DefaultMergeConfig())
	require.Len(t, regions, 2)
	assert.Equal(t, ChangeMissing, regions[0].Change)
	assert.Equal(t, ChangeExtra, regions[1].Change)
}

func TestMergeIgnoresUnflaggedTokens(t *testing.T) {
	tokens := []Token{
		{Text: "intact", BBox: geometry.NewRect(10, 100, 50, 112)},
		flaggedToken("change", 55, 100, 100, 112, ChangeExtra, HighlightGreen),
	}

	regions := MergeAdjacent(tokens, DefaultMergeConfig())
	require.Len(t, regions, 1)
	assert.Equal(t, []string{"change"}, regions[0].Texts)
}

func TestMergeEmptyInput(t *testing.T) {
	assert.Nil(t, MergeAdjacent(nil, DefaultMergeConfig()))
	assert.Nil(t, MergeAdjacent([]Token{{Text: "rien"}}, DefaultMergeConfig()))
}

func TestMergeSortsIntoReadingOrder(t *testing.T) {
	// Tokens supplied out of order must still group by row.
	tokens := []Token{
		flaggedToken("b", 60, 100, 90, 112, ChangeMissing, HighlightYellow),
		flaggedToken("a", 10, 100, 55, 112, ChangeMissing, HighlightYellow),
	}

	regions := MergeAdjacent(tokens, DefaultMergeConfig())
	require.Len(t, regions, 1)
	assert.Equal(t, []string{"a", "b"}, regions[0].Texts)
}
