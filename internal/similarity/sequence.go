package similarity

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// OpTag classifies an alignment span.
type OpTag string

// Alignment span tags, following the classic diff-opcode contract.
const (
	OpEqual   OpTag = "equal"
	OpDelete  OpTag = "delete"
	OpInsert  OpTag = "insert"
	OpReplace OpTag = "replace"
)

// Opcode describes how seqA[I1:I2] maps onto seqB[J1:J2].
type Opcode struct {
	Tag OpTag
	I1  int
	I2  int
	J1  int
	J2  int
}

// Opcodes aligns two token sequences and returns spans covering both
// completely and contiguously. A violation of that contract is a programming
// error and panics rather than silently truncating.
func Opcodes(a, b []string) []Opcode {
	m := difflib.NewMatcher(a, b)
	raw := m.GetOpCodes()

	ops := make([]Opcode, 0, len(raw))
	for _, op := range raw {
		ops = append(ops, Opcode{Tag: tagFromByte(op.Tag), I1: op.I1, I2: op.I2, J1: op.J1, J2: op.J2})
	}
	checkCoverage(ops, len(a), len(b))
	return ops
}

// Ratio returns a similarity measure in [0,1] between two token sequences
// using the longest-matching-blocks algorithm (Ratcliff/Obershelp). It is a
// coarse heuristic signal, not an exact alignment.
func Ratio(a, b []string) float64 {
	return difflib.NewMatcher(a, b).Ratio()
}

// TextRatio is Ratio over the runes of two strings.
func TextRatio(a, b string) float64 {
	return Ratio(strings.Split(a, ""), strings.Split(b, ""))
}

func tagFromByte(t byte) OpTag {
	switch t {
	case 'e':
		return OpEqual
	case 'd':
		return OpDelete
	case 'i':
		return OpInsert
	case 'r':
		return OpReplace
	default:
		panic(fmt.Sprintf("similarity: unknown opcode tag %q", t))
	}
}

// checkCoverage asserts that opcode spans exactly partition both sequences.
func checkCoverage(ops []Opcode, lenA, lenB int) {
	i, j := 0, 0
	for _, op := range ops {
		if op.I1 != i || op.J1 != j {
			panic(fmt.Sprintf("similarity: opcode gap at (%d,%d), expected (%d,%d)", op.I1, op.J1, i, j))
		}
		if op.I2 < op.I1 || op.J2 < op.J1 {
			panic(fmt.Sprintf("similarity: negative opcode span %+v", op))
		}
		i, j = op.I2, op.J2
	}
	if i != lenA || j != lenB {
		panic(fmt.Sprintf("similarity: opcodes cover (%d,%d) of sequences with lengths (%d,%d)", i, j, lenA, lenB))
	}
}
