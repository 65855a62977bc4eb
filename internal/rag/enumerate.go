package rag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/atelier-labs/docent/internal/textutil"
)

// Extractor answers a recurring question shape directly from the context via
// structural extraction, bypassing the generative path. Free-form generation
// reliably scrambles or drops items in order-sensitive enumerations, so
// deterministic extraction wins for those shapes. Extract returning false
// means "nothing found, fall through to the composer".
type Extractor interface {
	Match(question string) bool
	Extract(ctx string) (string, bool)
}

// enumeration item markers: "1. **Name**" or "- **Name**".
var (
	numberedItem = regexp.MustCompile(`\d+\.\s*\*\*(.+?)\*\*`)
	bulletItem   = regexp.MustCompile(`[-*•]\s+\*\*(.+?)\*\*`)
)

// extractItems pulls emphasized list-item names from the text, numbered
// markers first, in document order, deduplicated.
func extractItems(text string) []string {
	var items []string
	seen := make(map[string]struct{})
	add := func(matches [][]string) {
		for _, m := range matches {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			items = append(items, name)
		}
	}
	add(numberedItem.FindAllStringSubmatch(text, -1))
	if len(items) == 0 {
		add(bulletItem.FindAllStringSubmatch(text, -1))
	}
	return items
}

// canonicalRanks maps folded item names to their position in a reference
// model. Lookup is by whole name, never substring, so items of one model
// cannot rank in another ("Network Access" is not the OSI network layer).
type canonicalRanks map[string]int

func (c canonicalRanks) rank(name string) (int, bool) {
	r, ok := c[strings.Join(strings.Fields(textutil.Fold(name)), " ")]
	return r, ok
}

// orderItems buckets at most one item per canonical rank, first occurrence
// winning, and returns them rank-ordered with unmatched names appended in
// document order. matched counts how many distinct ranks were filled.
func orderItems(items []string, ranks canonicalRanks, size int) (ordered []string, matched int) {
	byRank := make(map[int]string, size)
	var rest []string
	for _, name := range items {
		r, ok := ranks.rank(name)
		if !ok {
			rest = append(rest, name)
			continue
		}
		if _, dup := byRank[r]; !dup {
			byRank[r] = name
		}
	}
	for r := 0; r < size; r++ {
		if name, ok := byRank[r]; ok {
			ordered = append(ordered, name)
		}
	}
	return append(ordered, rest...), len(byRank)
}

// OSIExtractor renders the seven OSI layers as a numbered list in canonical
// order, extracted structurally from the context.
type OSIExtractor struct{}

var osiCanonical = canonicalRanks{
	"physical layer": 0, "couche physique": 0,
	"data link layer": 1, "couche liaison de donnees": 1, "liaison de donnees": 1,
	"network layer": 2, "couche reseau": 2,
	"transport layer": 3, "couche transport": 3,
	"session layer": 4, "couche session": 4,
	"presentation layer": 5, "couche presentation": 5,
	"application layer": 6, "couche application": 6,
}

// Match fires on questions naming the OSI model together with its layers.
func (OSIExtractor) Match(question string) bool {
	q := textutil.Fold(question)
	if !strings.Contains(q, "osi") {
		return false
	}
	return strings.Contains(q, "layer") || strings.Contains(q, "couche")
}

// Extract pulls the layer names from the context and renders them in
// canonical order, capped at seven. Returns false when the context holds no
// structural enumeration at all.
func (OSIExtractor) Extract(ctx string) (string, bool) {
	items, _ := orderItems(extractItems(ctx), osiCanonical, 7)
	if len(items) == 0 {
		return "", false
	}
	if len(items) > 7 {
		items = items[:7]
	}

	var b strings.Builder
	b.WriteString("The 7 layers of the OSI model are:\n")
	for i, name := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

// TCPIPExtractor renders the four TCP/IP layers in canonical order. Unlike
// the OSI case the table carries bare layer names, which is what a TCP/IP
// enumeration uses; the suffixed OSI forms never match it.
type TCPIPExtractor struct{}

var tcpipCanonical = canonicalRanks{
	"network access": 0, "acces reseau": 0,
	"internet": 1, "couche internet": 1,
	"transport": 2,
	"application": 3,
}

// Match fires on questions naming the TCP/IP model together with its layers.
func (TCPIPExtractor) Match(question string) bool {
	q := textutil.Fold(question)
	if !strings.Contains(q, "tcp/ip") && !strings.Contains(q, "tcp ip") {
		return false
	}
	return strings.Contains(q, "layer") || strings.Contains(q, "couche")
}

// Extract answers only when the context enumerates all four layers; a partial
// match falls through to the composer rather than rendering an invented model.
func (TCPIPExtractor) Extract(ctx string) (string, bool) {
	ordered, matched := orderItems(extractItems(ctx), tcpipCanonical, 4)
	if matched < 4 {
		return "", false
	}

	var b strings.Builder
	b.WriteString("The TCP/IP model has 4 layers:\n")
	for i, name := range ordered[:4] {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return strings.TrimRight(b.String(), "\n"), true
}
