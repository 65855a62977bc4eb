package rag

import (
	"strings"

	"github.com/atelier-labs/docent/internal/textutil"
)

// Check names identify the gate check that rejected a query. They double as
// metric label values.
const (
	CheckEmptyContext       = "empty_context"
	CheckLexicalOverlap     = "lexical_overlap"
	CheckStrongKeywords     = "strong_keywords"
	CheckNumericConsistency = "numeric_consistency"
	CheckRefusalEcho        = "refusal_echo"
)

// GateConfig holds the relevance-gate thresholds. Tuned by trial on the
// target corpus, so configurable rather than constant.
type GateConfig struct {
	MinTokenLen    int // lexical overlap token floor
	FuzzyMinLen    int // fuzzy pass token floor
	FuzzyPrefixLen int // shared-prefix length for the fuzzy pass
	StrongMinLen   int // strong-keyword token floor
}

// stopwords are low-information interrogative and generic words excluded
// from the strong-keyword check. Only tokens at or above StrongMinLen are
// ever considered, so shorter entries are harmless.
var stopwords = map[string]struct{}{
	"how": {}, "what": {}, "which": {}, "where": {}, "when": {},
	"could": {}, "would": {}, "should": {}, "please": {},
	"give": {}, "tell": {}, "about": {}, "explain": {}, "explanation": {},
	"define": {}, "definition": {}, "describe": {},
	"example": {}, "examples": {}, "course": {}, "lesson": {},
	"introduce": {}, "introduction": {}, "using": {}, "usage": {},
}

// Gate is the deterministic refusal policy. It runs regardless of whether
// the composer is extractive or generative; any failed check maps to the
// sentinel answer with no sources.
type Gate struct {
	cfg GateConfig
}

// NewGate creates a gate with the given thresholds; zero values take the
// tuned defaults.
func NewGate(cfg GateConfig) *Gate {
	if cfg.MinTokenLen <= 0 {
		cfg.MinTokenLen = 3
	}
	if cfg.FuzzyMinLen <= 0 {
		cfg.FuzzyMinLen = 4
	}
	if cfg.FuzzyPrefixLen <= 0 {
		cfg.FuzzyPrefixLen = 4
	}
	if cfg.StrongMinLen <= 0 {
		cfg.StrongMinLen = 5
	}
	return &Gate{cfg: cfg}
}

// Screen applies the pre-answer checks in order and returns the name of the
// first failing check, or "" when the context is trustworthy enough to
// answer from. The strong-keyword check only applies before a generative
// composition.
func (g *Gate) Screen(question, ctx string, generative bool) string {
	if strings.TrimSpace(ctx) == "" {
		return CheckEmptyContext
	}

	qk := textutil.Keywords(question, g.cfg.MinTokenLen)
	ck := textutil.Keywords(ctx, g.cfg.MinTokenLen)
	if textutil.Overlap(qk, ck) == 0 &&
		!textutil.FuzzyOverlap(qk, ck, g.cfg.FuzzyMinLen, g.cfg.FuzzyPrefixLen) {
		return CheckLexicalOverlap
	}

	if generative && g.hasUncoveredStrongKeyword(qk, ck) {
		return CheckStrongKeywords
	}
	return ""
}

// Inspect applies the post-generation checks to a composed answer and
// returns the name of the first failing check, or "".
func (g *Gate) Inspect(answer, ctx string) string {
	if isRefusal(answer) {
		return CheckRefusalEcho
	}

	nums := textutil.Integers(answer)
	if len(nums) > 0 && !textutil.Subset(nums, textutil.Integers(ctx)) {
		return CheckNumericConsistency
	}
	return ""
}

// hasUncoveredStrongKeyword reports whether some strong question keyword is
// absent from the context keyword set. A question about an entity the corpus
// never mentions must not be answered just because it shares generic words
// with some chunk.
func (g *Gate) hasUncoveredStrongKeyword(qk, ck map[string]struct{}) bool {
	for w := range qk {
		if len(w) < g.cfg.StrongMinLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, ok := ck[w]; !ok {
			return true
		}
	}
	return false
}

// refusalPhrases are model refusals normalized to the canonical sentinel so
// a free-form "I don't know" never leaks through with non-empty sources.
var refusalPhrases = []string{
	"i don't know",
	"i do not know",
	"not in the internal documents",
	"cannot answer from the context",
}

func isRefusal(answer string) bool {
	folded := textutil.Fold(answer)
	for _, p := range refusalPhrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}
