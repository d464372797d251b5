package engine

import (
	"github.com/redline-tools/redline/internal/geometry"
	"github.com/redline-tools/redline/internal/verify"
	"github.com/redline-tools/redline/internal/worddiff"
)

// PageMatch records which reference page the locator selected and how
// confident it was. It is present in a report only when the reference has
// more than one page.
type PageMatch struct {
	Page       int     `json:"matched_page_index"`
	Confidence float64 `json:"confidence"`
}

// MatchStatus classifies one ProductMatch.
type MatchStatus string

const (
	// StatusMatched pairs whose distance is within the threshold.
	StatusMatched MatchStatus = "matched"
	// StatusUnmatchedPair pairs produced by the matcher whose distance
	// exceeds the threshold. Reported distinctly from truly unpaired
	// regions.
	StatusUnmatchedPair MatchStatus = "unmatched_pair"
	// StatusRefOnly regions for which the final document had no partner.
	StatusRefOnly MatchStatus = "unmatched_in_ref"
	// StatusFinalOnly regions for which the reference had no partner.
	StatusFinalOnly MatchStatus = "unmatched_in_final"
)

// RegionInfo is the serializable view of one extracted image region.
type RegionInfo struct {
	ID          int           `json:"id"`
	Page        int           `json:"page_index"`
	BBox        geometry.Rect `json:"bbox"`
	WidthPx     float64       `json:"width_px"`
	HeightPx    float64       `json:"height_px"`
	Fingerprint string        `json:"fingerprint"`
}

// ProductMatch pairs a reference region with a final region, or records an
// unpaired region from either side. Every extracted region appears in
// exactly one ProductMatch.
type ProductMatch struct {
	Ref      *RegionInfo `json:"ref,omitempty"`
	Final    *RegionInfo `json:"final,omitempty"`
	Distance *int        `json:"distance,omitempty"`
	Status   MatchStatus `json:"status"`
	// Scale percentages of the final region relative to the reference,
	// present only for paired regions.
	WidthScalePercent  *float64 `json:"width_scale_percent,omitempty"`
	HeightScalePercent *float64 `json:"height_scale_percent,omitempty"`
}

// ImagePageResult holds the matches for one compared page pair.
type ImagePageResult struct {
	RefPage   int            `json:"ref_page"`
	FinalPage int            `json:"final_page"`
	Matches   []ProductMatch `json:"matches"`
}

// ImageTotals aggregates match statuses across all compared pages.
type ImageTotals struct {
	Matched       int `json:"matched"`
	UnmatchedPair int `json:"unmatched_pair"`
	RefOnly       int `json:"unmatched_in_ref"`
	FinalOnly     int `json:"unmatched_in_final"`
}

// ImageReport is the image-match mode output.
type ImageReport struct {
	PageMatch *PageMatch        `json:"page_match,omitempty"`
	Pages     []ImagePageResult `json:"pages"`
	Totals    ImageTotals       `json:"totals"`
}

// AnnotationResult is one verified annotation.
type AnnotationResult struct {
	Page  int           `json:"page_index"`
	Text  string        `json:"text"`
	BBox  geometry.Rect `json:"bbox"`
	Check verify.Check  `json:"check"`
}

// AnnotationTotals counts verdicts by status.
type AnnotationTotals struct {
	Implemented    int `json:"implemented"`
	NotImplemented int `json:"not_implemented"`
	Partial        int `json:"partial"`
	Unclear        int `json:"unclear"`
}

// AnnotationReport is the annotation-verification mode output.
type AnnotationReport struct {
	PageMatch *PageMatch         `json:"page_match,omitempty"`
	Results   []AnnotationResult `json:"results"`
	Totals    AnnotationTotals   `json:"totals"`
}

// WordPageResult holds the classified tokens and merged highlight regions
// for one compared page pair.
type WordPageResult struct {
	RefPage      int                     `json:"ref_page"`
	FinalPage    int                     `json:"final_page"`
	RefTokens    []worddiff.Token        `json:"ref_tokens"`
	FinalTokens  []worddiff.Token        `json:"final_tokens"`
	RefRegions   []worddiff.MergedRegion `json:"ref_regions"`
	FinalRegions []worddiff.MergedRegion `json:"final_regions"`
	Missing      int                     `json:"missing"`
	Extra        int                     `json:"extra"`
}

// WordTotals aggregates flagged-token counts across pages.
type WordTotals struct {
	Missing int `json:"missing"`
	Extra   int `json:"extra"`
}

// WordReport is the word-diff mode output.
type WordReport struct {
	PageMatch *PageMatch       `json:"page_match,omitempty"`
	Pages     []WordPageResult `json:"pages"`
	Totals    WordTotals       `json:"totals"`
}
