// Package worddiff aligns two positioned-token sequences extracted from a
// reference and a final rendition of a document, classifies the differences,
// and merges adjacent same-kind changes into regions suitable for rendering.
package worddiff

import "github.com/redline-tools/redline/internal/geometry"

// ChangeType classifies what happened to a token between the two documents.
type ChangeType string

// Token change classifications.
const (
	ChangeNone    ChangeType = ""
	ChangeMissing ChangeType = "MISSING" // present in reference, absent from final
	ChangeExtra   ChangeType = "EXTRA"   // present in final, absent from reference
)

// Highlight is the render color associated with a classification.
type Highlight string

// Highlight colors.
const (
	HighlightNone   Highlight = ""
	HighlightYellow Highlight = "yellow"
	HighlightGreen  Highlight = "green"
)

// Token is one extracted word with its position on the page. Classification
// fields are filled by the aligner; input tokens are never mutated.
type Token struct {
	Text       string        `json:"text"`
	BBox       geometry.Rect `json:"bbox"`
	Normalized string        `json:"normalized,omitempty"`
	Change     ChangeType    `json:"change,omitempty"`
	Highlight  Highlight     `json:"highlight,omitempty"`
}

// Flagged reports whether the token carries a change classification.
func (t Token) Flagged() bool { return t.Change != ChangeNone }

// MergedRegion is a run of adjacent same-classification tokens unioned into a
// single rectangle for one readable highlight. It exists only transiently for
// rendering.
type MergedRegion struct {
	BBox      geometry.Rect `json:"bbox"`
	Change    ChangeType    `json:"change"`
	Highlight Highlight     `json:"highlight"`
	Texts     []string      `json:"texts"`
}

// Text joins the region's constituent words in reading order.
func (m MergedRegion) Text() string {
	out := ""
	for i, s := range m.Texts {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
