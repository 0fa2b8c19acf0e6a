// Package similarity provides string similarity scoring on a 0-100 integer scale
package similarity

import (
	"math"
	"strings"
)

// Weighted is a single component of a composite score
type Weighted struct {
	Score  int
	Weight float64
}

// Ratio returns a similarity score between 0 and 100 based on Levenshtein
// distance over the longer input. Comparison is case-insensitive. Two empty
// strings are identical (100); empty versus non-empty is 0.
func Ratio(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	dist := Distance(ra, rb)
	return int(math.Round(float64(maxLen-dist) / float64(maxLen) * 100))
}

// Distance computes the Levenshtein edit distance between two rune slices
// using a two-row dynamic programming table.
func Distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// TrigramJaccard returns the Jaccard similarity of the two strings' trigram
// sets, scaled to 0-100. Inputs shorter than three runes fall back to Ratio.
func TrigramJaccard(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 100
	}

	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return Ratio(a, b)
	}

	intersection := 0
	for gram := range ta {
		if _, ok := tb[gram]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}

	return int(math.Round(float64(intersection) / float64(union) * 100))
}

func trigrams(s string) map[string]struct{} {
	runes := []rune(s)
	grams := make(map[string]struct{})
	for i := 0; i+3 <= len(runes); i++ {
		grams[string(runes[i:i+3])] = struct{}{}
	}
	return grams
}

// WeightedScore combines component scores by their weights. Components with
// zero weight are skipped; the result is normalized by the total weight and
// clamped to 0-100.
func WeightedScore(components ...Weighted) int {
	var sum, totalWeight float64
	for _, c := range components {
		if c.Weight <= 0 {
			continue
		}
		sum += float64(c.Score) * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0
	}

	score := int(math.Round(sum / totalWeight))
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
