// Package similarity computes surface string similarity between review texts.
//
// The ratio is the classic matching-blocks measure 2*M/T, where M is the
// number of characters in the matching blocks found by a sequence matcher
// and T is the combined length of both strings. Comparison is character
// level (runes), case sensitive and whitespace sensitive.
package similarity

import (
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the ratio a pair of texts must exceed to be reported.
const DefaultThreshold = 0.8

// Ratio returns the similarity of a and b in [0, 1].
//
// The sequence matcher is not symmetric in its arguments, so they are put
// in a canonical order first; Ratio(a, b) == Ratio(b, a) always holds.
// Two empty strings are identical and score 1.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	if b < a {
		a, b = b, a
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// Exceeds reports whether score is strictly above threshold.
// A pair scoring exactly the threshold is not a near-duplicate.
func Exceeds(score, threshold float64) bool {
	return score > threshold
}

// UpperBound returns the largest ratio two strings of the given rune
// lengths can reach, 2*min(la, lb)/(la+lb).
func UpperBound(la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}

// CanExceed reports whether strings of the given rune lengths could score
// above threshold at all. Pairs for which it is false can be skipped
// without computing the ratio.
func CanExceed(la, lb int, threshold float64) bool {
	return Exceeds(UpperBound(la, lb), threshold)
}

// runes splits s into one element per rune, the unit the matcher compares.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
