package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// normalizeText prepares a string for edit-distance comparison: width-fold,
// lower-case, strip punctuation, collapse whitespace.
func normalizeText(s string) string {
	s = width.Narrow.String(s)
	s = strings.ToLower(s)
	var sb strings.Builder
	sb.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			sb.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				sb.WriteRune(' ')
				lastSpace = true
			}
		}
		// punctuation and symbols dropped
	}
	return strings.TrimSpace(sb.String())
}

// similarity is a normalized edit-distance ratio in [0,1] over normalized
// strings: 1 - levenshtein/maxLen. Empty inputs score 0 rather than 1; an
// empty quote carries no evidence.
func similarity(a, b string) float64 {
	na := []rune(normalizeText(a))
	nb := []rune(normalizeText(b))
	if len(na) == 0 || len(nb) == 0 {
		return 0
	}
	dist := levenshtein(na, nb)
	max := len(na)
	if len(nb) > max {
		max = len(nb)
	}
	return 1 - float64(dist)/float64(max)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
