package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodesCoverage(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
	}{
		{"both empty", nil, nil},
		{"empty a", nil, []string{"x", "y"}},
		{"empty b", []string{"x", "y"}, nil},
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"replace middle", []string{"a", "b", "c"}, []string{"a", "x", "c"}},
		{"insert and delete", []string{"a", "b", "c", "d"}, []string{"b", "c", "e"}},
		{"disjoint", []string{"a", "b"}, []string{"x", "y", "z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := Opcodes(tt.a, tt.b)

			sumA, sumB := 0, 0
			for _, op := range ops {
				sumA += op.I2 - op.I1
				sumB += op.J2 - op.J1
			}
			assert.Equal(t, len(tt.a), sumA)
			assert.Equal(t, len(tt.b), sumB)
		})
	}
}

func TestOpcodesTags(t *testing.T) {
	ops := Opcodes(
		[]string{"le", "produit", "coute", "32859"},
		[]string{"le", "produit", "coute", "61545"},
	)
	require.NotEmpty(t, ops)

	last := ops[len(ops)-1]
	assert.Equal(t, OpReplace, last.Tag)
	assert.Equal(t, 3, last.I1)
	assert.Equal(t, 4, last.I2)
	assert.Equal(t, 3, last.J1)
	assert.Equal(t, 4, last.J2)

	first := ops[0]
	assert.Equal(t, OpEqual, first.Tag)
}

func TestOpcodesAllInsertOnEmptyReference(t *testing.T) {
	ops := Opcodes(nil, []string{"a", "b"})
	require.Len(t, ops, 1)
	assert.Equal(t, OpInsert, ops[0].Tag)

	ops = Opcodes([]string{"a", "b"}, nil)
	require.Len(t, ops, 1)
	assert.Equal(t, OpDelete, ops[0].Tag)
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 1.0, Ratio([]string{"a", "b"}, []string{"a", "b"}), 1e-9)
	assert.InDelta(t, 0.0, Ratio([]string{"a"}, []string{"b"}), 1e-9)

	r := Ratio([]string{"a", "b", "c", "d"}, []string{"a", "b", "x", "d"})
	assert.Greater(t, r, 0.5)
	assert.Less(t, r, 1.0)
}

func TestTextRatio(t *testing.T) {
	assert.InDelta(t, 1.0, TextRatio("bonjour", "bonjour"), 1e-9)
	assert.Greater(t, TextRatio("bonjour", "bonsoir"), 0.5)
	assert.InDelta(t, 0.0, TextRatio("abc", "xyz"), 1e-9)
}
