// Package match pairs elements of two finite sets one-to-one by minimizing a
// pairwise distance. The greedy strategy is a deliberate approximation of
// optimal bipartite assignment; it lives behind the Matcher interface so an
// exact algorithm can replace it without touching callers.
package match

import "sort"

// DistanceFunc returns the symmetric distance between element i of set A and
// element j of set B. Lower means more similar.
type DistanceFunc func(i, j int) int

// Pair is a one-to-one assignment of A[a] to B[b].
type Pair struct {
	A        int
	B        int
	Distance int
}

// Result is a complete account of both sets: every element appears exactly
// once, either in Pairs or in one of the unmatched lists.
type Result struct {
	Pairs      []Pair
	UnmatchedA []int
	UnmatchedB []int
}

// Matcher computes a one-to-one partial matching between two indexed sets.
type Matcher interface {
	Match(lenA, lenB int, dist DistanceFunc) Result
}

// Greedy matches by scanning the full cross product in ascending distance
// order, accepting a pair only when neither side has been taken yet. Ties are
// broken by insertion order (a, then b) so output is deterministic.
type Greedy struct{}

// Match implements Matcher. Complexity and memory are O(lenA·lenB).
func (Greedy) Match(lenA, lenB int, dist DistanceFunc) Result {
	candidates := make([]Pair, 0, lenA*lenB)
	for a := 0; a < lenA; a++ {
		for b := 0; b < lenB; b++ {
			candidates = append(candidates, Pair{A: a, B: b, Distance: dist(a, b)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		if candidates[i].A != candidates[j].A {
			return candidates[i].A < candidates[j].A
		}
		return candidates[i].B < candidates[j].B
	})

	usedA := make([]bool, lenA)
	usedB := make([]bool, lenB)
	var pairs []Pair
	for _, c := range candidates {
		if usedA[c.A] || usedB[c.B] {
			continue
		}
		usedA[c.A] = true
		usedB[c.B] = true
		pairs = append(pairs, c)
	}

	var result Result
	result.Pairs = pairs
	for a := 0; a < lenA; a++ {
		if !usedA[a] {
			result.UnmatchedA = append(result.UnmatchedA, a)
		}
	}
	for b := 0; b < lenB; b++ {
		if !usedB[b] {
			result.UnmatchedB = append(result.UnmatchedB, b)
		}
	}
	return result
}
