package pdfdoc

import (
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/geometry"
)

// Words implements document.Document. The vector layer yields text chunks
// per visual row; consecutive chunks are glued into words until a spacing
// break. Results are cached per page.
func (d *Document) Words(page int) ([]document.Word, error) {
	d.mu.Lock()
	cached, ok := d.words[page]
	d.mu.Unlock()
	if ok {
		return append([]document.Word(nil), cached...), nil
	}

	p, err := d.page(page)
	if err != nil {
		return nil, err
	}
	_, pageH := pageDimensions(p)

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: extract text rows from page %d: %w", page, err)
	}

	var words []document.Word
	for _, row := range rows {
		words = append(words, wordsFromRow(row.Content, pageH)...)
	}

	d.mu.Lock()
	d.words[page] = words
	d.mu.Unlock()
	return append([]document.Word(nil), words...), nil
}

// wordsFromRow glues a row's text chunks into words. A new word starts on a
// whitespace chunk or when the horizontal gap to the previous chunk exceeds
// a third of the font size.
func wordsFromRow(chunks []pdf.Text, pageH float64) []document.Word {
	var words []document.Word

	var cur strings.Builder
	var x0, y0, x1, y1 float64
	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			words = append(words, document.Word{
				Text: text,
				BBox: flipRect(x0, y0, x1, y1, pageH),
			})
		}
		cur.Reset()
	}

	prevEnd := 0.0
	for _, c := range chunks {
		if strings.TrimSpace(c.S) == "" {
			flush()
			prevEnd = c.X + c.W
			continue
		}
		gap := c.X - prevEnd
		if cur.Len() > 0 && gap > c.FontSize/3 {
			flush()
		}
		if cur.Len() == 0 {
			x0, y0 = c.X, c.Y
			x1, y1 = c.X+c.W, c.Y+c.FontSize
		} else {
			if c.X < x0 {
				x0 = c.X
			}
			if c.X+c.W > x1 {
				x1 = c.X + c.W
			}
			if c.Y < y0 {
				y0 = c.Y
			}
			if c.Y+c.FontSize > y1 {
				y1 = c.Y + c.FontSize
			}
		}
		cur.WriteString(c.S)
		prevEnd = c.X + c.W
	}
	flush()
	return words
}

// Text implements document.Document. Without a clip the page's plain text is
// returned; with a clip, the words intersecting it joined in reading order.
func (d *Document) Text(page int, clip *geometry.Rect) (string, error) {
	if clip == nil {
		p, err := d.page(page)
		if err != nil {
			return "", err
		}
		fonts := make(map[string]*pdf.Font)
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("pdfdoc: extract text from page %d: %w", page, err)
		}
		return text, nil
	}

	words, err := d.Words(page)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, w := range words {
		if clip.Intersects(w.BBox) {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " "), nil
}
