// Package rag implements the retrieval-and-answer pipeline: retrieve
// candidate chunks, consolidate them into one context, gate the context with
// deterministic relevance checks, and compose a grounded answer or refuse
// with the fixed sentinel.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-labs/docent/internal/domain"
	"github.com/atelier-labs/docent/internal/index"
	"github.com/atelier-labs/docent/internal/textutil"
)

// RetrieverConfig holds the candidate-set and context-assembly knobs.
type RetrieverConfig struct {
	TopK          int // candidates requested from the index
	ContextBudget int // consolidated context character budget
}

// Retriever turns a question into a single consolidated context string plus
// the chunks that produced it.
type Retriever struct {
	index index.Index
	cfg   RetrieverConfig
}

// Retrieval is the consolidated output of one retrieval pass.
type Retrieval struct {
	Context string
	Sources []domain.Chunk
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(ix index.Index, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 2200
	}
	return &Retriever{index: ix, cfg: cfg}
}

// Retrieve queries the index, narrows the candidate set to the subject and
// source of the best hit, and assembles the context string. An empty result
// is a normal outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) (Retrieval, error) {
	chunks, err := r.index.Query(ctx, question, r.cfg.TopK)
	if err != nil {
		return Retrieval{}, fmt.Errorf("query index: %w", err)
	}
	if len(chunks) == 0 {
		return Retrieval{}, nil
	}

	chunks = restrictSubject(question, chunks)
	chunks = consolidateSource(chunks)

	return Retrieval{
		Context: assembleContext(chunks, r.cfg.ContextBudget),
		Sources: chunks,
	}, nil
}

// restrictSubject drops candidates that never mention an explicitly named
// subject of the question. Today the only such subject is the OSI reference
// model: its chunks share vocabulary with TCP/IP chunks, and blending the
// two reliably produces wrong layer lists. Falls back to the full set when
// the filter would empty it.
func restrictSubject(question string, chunks []domain.Chunk) []domain.Chunk {
	q := textutil.Fold(question)
	if !strings.Contains(q, "osi") {
		return chunks
	}

	var kept []domain.Chunk
	for _, c := range chunks {
		content := textutil.Fold(c.Content())
		if strings.Contains(content, "osi") || strings.Contains(content, "open systems interconnection") {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return chunks
	}
	return kept
}

// consolidateSource keeps only chunks sharing the top candidate's source
// document, trading recall for precision.
func consolidateSource(chunks []domain.Chunk) []domain.Chunk {
	top := chunks[0].Source()
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Source() == top {
			kept = append(kept, c)
		}
	}
	return kept
}

// assembleContext joins chunk contents in ranked order, newlines collapsed
// to spaces, stopping before the budget is exceeded. Whole trailing chunks
// are dropped rather than cut mid-sentence.
func assembleContext(chunks []domain.Chunk, budget int) string {
	var b strings.Builder
	for _, c := range chunks {
		part := strings.TrimSpace(strings.Join(strings.Fields(c.Content()), " "))
		if part == "" {
			continue
		}
		if b.Len()+len(part) > budget {
			break
		}
		b.WriteString(part)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
