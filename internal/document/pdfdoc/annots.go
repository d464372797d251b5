package pdfdoc

import (
	"strings"

	"github.com/dslipak/pdf"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/geometry"
)

// annotation subtypes that never carry reviewer content of their own. Popup
// entries mirror their parent annotation's text and would duplicate it.
var skippedSubtypes = map[string]bool{
	"Link":  true,
	"Popup": true,
}

// Annotations implements document.Document. It walks each page's /Annots
// array in the raw value layer and keeps every annotation with non-empty
// /Contents.
func (d *Document) Annotations() ([]document.Annotation, error) {
	var out []document.Annotation
	for page := 0; page < d.pageCount; page++ {
		p, err := d.page(page)
		if err != nil {
			return nil, err
		}
		_, pageH := pageDimensions(p)

		annots := p.V.Key("Annots")
		if annots.IsNull() {
			continue
		}
		for i := 0; i < annots.Len(); i++ {
			a := annots.Index(i)
			if a.IsNull() {
				continue
			}
			if skippedSubtypes[a.Key("Subtype").Name()] {
				continue
			}
			text := strings.TrimSpace(a.Key("Contents").Text())
			if text == "" {
				continue
			}

			ann := document.Annotation{Page: page, Text: text}
			if rect := a.Key("Rect"); !rect.IsNull() && rect.Len() == 4 {
				ann.BBox = annotationRect(rect, pageH)
			}
			out = append(out, ann)
		}
	}
	return out, nil
}

// annotationRect converts a raw /Rect array into page coordinates.
func annotationRect(rect pdf.Value, pageH float64) geometry.Rect {
	return flipRect(
		rect.Index(0).Float64(),
		rect.Index(1).Float64(),
		rect.Index(2).Float64(),
		rect.Index(3).Float64(),
		pageH,
	)
}
