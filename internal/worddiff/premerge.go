package worddiff

import "regexp"

// numberSuffix matches a bracketed footnote marker of one or two digits, in
// ASCII or superscript glyph form: (1), (12), ⁽¹⁾.
var numberSuffix = regexp.MustCompile(`^[\(⁽][0-9⁰¹²³⁴⁵⁶⁷⁸⁹]{1,2}[\)⁾]$`)

// mergeNumberSuffixes joins a token followed by a bracketed-number token into
// a single token with a unioned bounding box, e.g. "PLUS" + "(1)" becomes
// "PLUS(1)". This runs before normalization so later steps see the merged
// form.
func mergeNumberSuffixes(tokens []Token) []Token {
	if len(tokens) == 0 {
		return nil
	}

	merged := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); {
		cur := tokens[i]
		if i+1 < len(tokens) && numberSuffix.MatchString(tokens[i+1].Text) {
			next := tokens[i+1]
			merged = append(merged, Token{
				Text: cur.Text + next.Text,
				BBox: cur.BBox.Union(next.BBox),
			})
			i += 2
			continue
		}
		merged = append(merged, Token{Text: cur.Text, BBox: cur.BBox})
		i++
	}
	return merged
}
