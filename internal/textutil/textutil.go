// Package textutil provides the pure text normalization primitives shared by
// the retriever and the relevance gate: accent folding, keyword extraction,
// and integer token extraction.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder decomposes runes (NFD) and strips combining marks, so that
// "é" compares equal to "e". Mirrors the behaviour of Unicode NFD + Mn
// filtering; safe on already-ASCII input.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var integerToken = regexp.MustCompile(`\b\d+\b`)

// Fold lowercases the text and strips diacritics.
func Fold(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		// Transform only fails on malformed input; fall back to the raw text.
		folded = s
	}
	return strings.ToLower(folded)
}

// Keywords returns the set of alphanumeric tokens of at least minLen runes,
// lowercased and accent-folded.
func Keywords(s string, minLen int) map[string]struct{} {
	t := nonAlnum.ReplaceAllString(Fold(s), " ")
	out := make(map[string]struct{})
	for _, w := range strings.Fields(t) {
		if len(w) >= minLen {
			out[w] = struct{}{}
		}
	}
	return out
}

// Integers returns the set of integer tokens appearing in the text.
func Integers(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, n := range integerToken.FindAllString(s, -1) {
		out[n] = struct{}{}
	}
	return out
}

// Overlap reports how many keys the two sets share.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// Subset reports whether every key of a is present in b.
func Subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// FuzzyOverlap reports whether any token of a and any token of b (both at
// least minLen runes) share a prefix of prefixLen runes, or one contains the
// other. Tolerates misspellings and morphological variants.
func FuzzyOverlap(a, b map[string]struct{}, minLen, prefixLen int) bool {
	for x := range a {
		if len(x) < minLen {
			continue
		}
		for y := range b {
			if len(y) < minLen {
				continue
			}
			if len(x) >= prefixLen && len(y) >= prefixLen && x[:prefixLen] == y[:prefixLen] {
				return true
			}
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}

// Similarity is a normalized string-similarity ratio in [0,1] between two
// already-folded strings, based on Levenshtein distance.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	dist := levenshtein(a, b)
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
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
