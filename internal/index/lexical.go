package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/domain"
	"github.com/atelier-labs/docent/internal/textutil"
)

// LexicalConfig holds the composite-score knobs of the lexical driver.
// Thresholds are corpus-dependent and tuned by trial, hence configurable.
type LexicalConfig struct {
	TitleWeight        float64 // weight of keyword overlap in the combined score
	MinTitleSimilarity float64 // below this AND below MinKeywordOverlap ⇒ no candidate
	MinKeywordOverlap  int
	MinTokenLen        int // keyword length floor (≥2 per the scoring rules)
}

// LexicalIndex ranks sections by normalized title match and keyword overlap,
// without embeddings. Derivation from the corpus is cheap, so the index is
// rebuilt at open instead of persisted.
type LexicalIndex struct {
	loader CorpusLoader
	cfg    LexicalConfig
	logger *zap.Logger

	entries []lexicalEntry
}

type lexicalEntry struct {
	chunk    domain.Chunk
	title    string // folded
	keywords map[string]struct{}
}

// NewLexicalIndex creates a lexical/title index.
func NewLexicalIndex(loader CorpusLoader, cfg LexicalConfig, logger *zap.Logger) *LexicalIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TitleWeight <= 0 {
		cfg.TitleWeight = 0.3
	}
	if cfg.MinTitleSimilarity <= 0 {
		cfg.MinTitleSimilarity = 0.5
	}
	if cfg.MinKeywordOverlap <= 0 {
		cfg.MinKeywordOverlap = 2
	}
	if cfg.MinTokenLen <= 0 {
		cfg.MinTokenLen = 2
	}
	return &LexicalIndex{loader: loader, cfg: cfg, logger: logger}
}

// OpenOrBuild populates the index from the corpus.
func (ix *LexicalIndex) OpenOrBuild(ctx context.Context) error {
	chunks, err := ix.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	entries := make([]lexicalEntry, 0, len(chunks))
	for _, c := range chunks {
		entries = append(entries, lexicalEntry{
			chunk:    c,
			title:    textutil.Fold(c.Title()),
			keywords: textutil.Keywords(c.Title()+" "+c.Content(), ix.cfg.MinTokenLen),
		})
	}
	ix.entries = entries
	ix.logger.Info("lexical index built", zap.Int("sections", len(entries)))
	return nil
}

// Query ranks sections for the text. Direct title inclusion (either
// direction, after folding) wins outright; otherwise the combined score
// title_similarity + weight·keyword_overlap decides, with an acceptance
// threshold permissive enough to let the relevance gate do the real
// filtering. No acceptable candidate yields an empty result.
func (ix *LexicalIndex) Query(_ context.Context, text string, k int) ([]domain.Chunk, error) {
	if len(ix.entries) == 0 || k <= 0 {
		return nil, nil
	}

	folded := textutil.Fold(text)
	queryKeywords := textutil.Keywords(text, ix.cfg.MinTokenLen)

	// First pass: direct title inclusion.
	var direct []scoredEntry
	for i, e := range ix.entries {
		if e.title == "" {
			continue
		}
		if strings.Contains(folded, e.title) || strings.Contains(e.title, folded) {
			direct = append(direct, scoredEntry{i, textutil.Similarity(folded, e.title)})
		}
	}
	if len(direct) > 0 {
		return ix.take(direct, k), nil
	}

	// Fallback: combined score over all sections.
	combined := make([]scoredEntry, 0, len(ix.entries))
	bestSim, bestOverlap := 0.0, 0
	for i, e := range ix.entries {
		sim := textutil.Similarity(folded, e.title)
		overlap := textutil.Overlap(queryKeywords, e.keywords)
		if sim > bestSim {
			bestSim = sim
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
		}
		combined = append(combined, scoredEntry{i, sim + ix.cfg.TitleWeight*float64(overlap)})
	}

	if bestSim < ix.cfg.MinTitleSimilarity && bestOverlap < ix.cfg.MinKeywordOverlap {
		return nil, nil
	}
	return ix.take(combined, k), nil
}

type scoredEntry struct {
	idx   int
	score float64
}

func (ix *LexicalIndex) take(scores []scoredEntry, k int) []domain.Chunk {
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]domain.Chunk, 0, k)
	for _, s := range scores[:k] {
		out = append(out, ix.entries[s.idx].chunk)
	}
	return out
}

// Rebuild repopulates from the corpus. Nothing is persisted, so this is
// identical to OpenOrBuild.
func (ix *LexicalIndex) Rebuild(ctx context.Context) error {
	ix.entries = nil
	return ix.OpenOrBuild(ctx)
}

// Len returns the number of indexed sections.
func (ix *LexicalIndex) Len() int { return len(ix.entries) }
