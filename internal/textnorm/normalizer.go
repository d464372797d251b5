// Package textnorm canonicalizes extracted word tokens so that
// formatting-only differences (case, quote glyphs, accents, footnote
// markers, punctuation) do not register as document changes.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// quoteRunes is the explicit set of apostrophe, quote and accent code points
// removed from tokens. Kept as a wide explicit set rather than one canonical
// form: PDF generators disagree wildly about which glyph they emit.
var quoteRunes = map[rune]struct{}{
	'\'':     {},
	'’': {}, // right single quotation mark
	'‘': {}, // left single quotation mark
	'ʼ': {}, // modifier letter apostrophe
	'`':      {},
	'´': {}, // acute accent
	'ˊ': {}, // modifier letter acute accent
	'ˋ': {}, // modifier letter grave accent
	'ʹ': {}, // modifier letter prime
	'′': {}, // prime
	'‵': {}, // reversed prime
	'＇': {}, // fullwidth apostrophe
	'՚': {}, // Armenian apostrophe
	'Ꞌ': {}, // saltillo
	'ꞌ': {}, // small saltillo
	'ʻ': {}, // modifier letter turned comma
	'ʽ': {}, // modifier letter reversed comma
	'́': {}, // combining acute accent
	'̀': {}, // combining grave accent
	'"':      {},
	'“': {}, // left double quotation mark
	'”': {}, // right double quotation mark
	'«': {}, // «
	'»': {}, // »
	'„': {}, // double low-9 quotation mark
	'‟': {}, // double high-reversed-9 quotation mark
	'〝': {}, // reversed double prime quotation mark
	'〞': {}, // double prime quotation mark
	'＂': {}, // fullwidth quotation mark
}

// scriptDigits folds superscript and subscript digit/bracket/sign glyphs to
// their ASCII forms, e.g. PLUS⁽¹⁾ becomes PLUS(1).
var scriptDigits = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
	'⁽': '(', '⁾': ')', '⁺': '+', '⁻': '-', '⁼': '=',
	'₀': '0', '₁': '1', '₂': '2', '₃': '3', '₄': '4',
	'₅': '5', '₆': '6', '₇': '7', '₈': '8', '₉': '9',
	'₍': '(', '₎': ')', '₊': '+', '₋': '-', '₌': '=',
}

var zeroWidthRunes = map[rune]struct{}{
	'\u200b': {}, // zero-width space
	'\u200c': {}, // zero-width non-joiner
	'\u200d': {}, // zero-width joiner
	'\ufeff': {}, // zero-width no-break space
}

// Footnote markers: a bracketed group of one or two digits, e.g. (1), [12],
// {3}. Longer digit runs stay untouched since they are meaningful data
// (product codes and the like).
var (
	parenDigits = regexp.MustCompile(`\([0-9]{1,2}\)`)
	brackDigits = regexp.MustCompile(`\[[0-9]{1,2}\]`)
	braceDigits = regexp.MustCompile(`\{[0-9]{1,2}\}`)
)

// Config controls normalization behavior.
type Config struct {
	// CaseInsensitive folds tokens to lower case before comparison.
	CaseInsensitive bool `mapstructure:"case_insensitive" yaml:"case_insensitive" json:"case_insensitive"`
}

// DefaultConfig returns the normalizer defaults used for comparisons.
func DefaultConfig() Config {
	return Config{CaseInsensitive: true}
}

// Normalizer canonicalizes tokens for comparison. It is pure and safe for
// concurrent use.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer with the given configuration.
func New(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize canonicalizes a single token. It returns "" for tokens that
// normalize to nothing; callers must treat an empty result as non-comparable.
//
// Step order matters: the quote set is stripped once before NFKC so that
// canonical composition cannot re-introduce combining marks, and again after
// to catch glyphs NFKC produced.
func (n *Normalizer) Normalize(token string) string {
	w := token
	if n.cfg.CaseInsensitive {
		w = strings.ToLower(w)
	}

	w = stripRunes(w, quoteRunes)
	w = norm.NFKC.String(w)
	w = stripRunes(w, quoteRunes)
	w = foldScriptDigits(w)

	w = parenDigits.ReplaceAllString(w, "")
	w = brackDigits.ReplaceAllString(w, "")
	w = braceDigits.ReplaceAllString(w, "")

	w = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		if _, ok := zeroWidthRunes[r]; ok {
			return -1
		}
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, w)

	return w
}

func stripRunes(s string, set map[rune]struct{}) string {
	return strings.Map(func(r rune) rune {
		if _, ok := set[r]; ok {
			return -1
		}
		return r
	}, s)
}

func foldScriptDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if folded, ok := scriptDigits[r]; ok {
			return folded
		}
		return r
	}, s)
}
