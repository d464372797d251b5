package worddiff

import (
	"math"
	"sort"
)

// MergeConfig tunes how adjacent flagged tokens are grouped into regions.
type MergeConfig struct {
	// VerticalTolerance is the maximum difference between row tops (in
	// points) for two tokens to count as the same visual row.
	VerticalTolerance float64 `mapstructure:"vertical_tolerance" yaml:"vertical_tolerance" json:"vertical_tolerance"`
	// HorizontalGap is the maximum horizontal distance (in points) between a
	// group's right edge and the next token's left edge.
	HorizontalGap float64 `mapstructure:"horizontal_gap" yaml:"horizontal_gap" json:"horizontal_gap"`
}

// DefaultMergeConfig returns the grouping tolerances used for rendering.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{VerticalTolerance: 5, HorizontalGap: 20}
}

// MergeAdjacent groups consecutive same-row, same-classification flagged
// tokens into single regions so a run of changed words renders as one
// contiguous highlight instead of one per token.
func MergeAdjacent(tokens []Token, cfg MergeConfig) []MergedRegion {
	flagged := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Flagged() {
			flagged = append(flagged, t)
		}
	}
	if len(flagged) == 0 {
		return nil
	}

	// Reading order: row top first, then left edge.
	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].BBox.Y0 != flagged[j].BBox.Y0 {
			return flagged[i].BBox.Y0 < flagged[j].BBox.Y0
		}
		return flagged[i].BBox.X0 < flagged[j].BBox.X0
	})

	var regions []MergedRegion
	current := regionFrom(flagged[0])
	for _, tok := range flagged[1:] {
		sameRow := math.Abs(tok.BBox.Y0-current.BBox.Y0) < cfg.VerticalTolerance
		sameKind := tok.Change == current.Change && tok.Highlight == current.Highlight
		closeEnough := tok.BBox.X0-current.BBox.X1 < cfg.HorizontalGap

		if sameRow && sameKind && closeEnough {
			current.BBox = current.BBox.Union(tok.BBox)
			current.Texts = append(current.Texts, tok.Text)
			continue
		}
		regions = append(regions, current)
		current = regionFrom(tok)
	}
	return append(regions, current)
}

func regionFrom(t Token) MergedRegion {
	return MergedRegion{
		BBox:      t.BBox,
		Change:    t.Change,
		Highlight: t.Highlight,
		Texts:     []string{t.Text},
	}
}
