package worddiff

import (
	"github.com/redline-tools/redline/internal/similarity"
	"github.com/redline-tools/redline/internal/textnorm"
)

// Aligner computes word-level differences between a reference and a final
// token sequence. Align is a pure function: it returns new classified
// sequences and never mutates its inputs.
type Aligner struct {
	norm *textnorm.Normalizer
}

// NewAligner creates an Aligner using the given normalizer.
func NewAligner(n *textnorm.Normalizer) *Aligner {
	return &Aligner{norm: n}
}

// Align pre-merges number-suffix patterns, normalizes, aligns via LCS
// opcodes, classifies removed spans as MISSING (reference side) and inserted
// spans as EXTRA (final side), then suppresses flags on any text that occurs
// verbatim in both documents.
//
// A replace span is treated as a delete immediately followed by an insert;
// no combined "replaced" classification is produced. Tokens whose normalized
// text is empty are non-comparable: they are never flagged.
func (a *Aligner) Align(ref, final []Token) (refOut, finalOut []Token) {
	refOut = mergeNumberSuffixes(ref)
	finalOut = mergeNumberSuffixes(final)

	refNorm := make([]string, len(refOut))
	for i := range refOut {
		refOut[i].Normalized = a.norm.Normalize(refOut[i].Text)
		refNorm[i] = refOut[i].Normalized
	}
	finalNorm := make([]string, len(finalOut))
	for j := range finalOut {
		finalOut[j].Normalized = a.norm.Normalize(finalOut[j].Text)
		finalNorm[j] = finalOut[j].Normalized
	}

	for _, op := range similarity.Opcodes(refNorm, finalNorm) {
		switch op.Tag {
		case similarity.OpEqual:
			// Unchanged.
		case similarity.OpDelete:
			flagMissing(refOut[op.I1:op.I2])
		case similarity.OpInsert:
			flagExtra(finalOut[op.J1:op.J2])
		case similarity.OpReplace:
			flagMissing(refOut[op.I1:op.I2])
			flagExtra(finalOut[op.J1:op.J2])
		}
	}

	suppressCommon(refOut, finalOut)
	return refOut, finalOut
}

func flagMissing(tokens []Token) {
	for i := range tokens {
		if tokens[i].Normalized == "" {
			continue
		}
		tokens[i].Change = ChangeMissing
		tokens[i].Highlight = HighlightYellow
	}
}

func flagExtra(tokens []Token) {
	for i := range tokens {
		if tokens[i].Normalized == "" {
			continue
		}
		tokens[i].Change = ChangeExtra
		tokens[i].Highlight = HighlightGreen
	}
}
