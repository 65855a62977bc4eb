// Package index makes chunks retrievable by approximate relevance to a
// query. Three drivers share one contract: a file-persisted vector index, a
// redis vector index, and an in-memory lexical/title index.
package index

import (
	"context"
	"math"

	"github.com/atelier-labs/docent/internal/domain"
)

// Index is the retrieval contract consumed by the RAG engine.
//
// OpenOrBuild loads persisted state if present, otherwise populates the index
// from the corpus; after it returns nil, Query never errors for the "no
// entries" case. Rebuild discards all persisted state and repopulates
// unconditionally. Callers serialize Rebuild against in-flight queries.
type Index interface {
	OpenOrBuild(ctx context.Context) error
	Query(ctx context.Context, text string, k int) ([]domain.Chunk, error)
	Rebuild(ctx context.Context) error
	Len() int
}

// CorpusLoader supplies the chunk set the index is derived from.
type CorpusLoader interface {
	Load(ctx context.Context) ([]domain.Chunk, error)
}

// PersistState reports what happened to the last persistence attempt, so
// callers can distinguish "saved", "failed, proceeding in-memory", and
// "failed, fatal" instead of uniformly ignoring write errors.
type PersistState int

const (
	// PersistNone means no persistence has been attempted yet.
	PersistNone PersistState = iota
	// PersistSaved means the artifact is on disk and current.
	PersistSaved
	// PersistMemoryOnly means the artifact write failed; queries keep
	// working from memory until the process exits.
	PersistMemoryOnly
)

func (s PersistState) String() string {
	switch s {
	case PersistSaved:
		return "saved"
	case PersistMemoryOnly:
		return "memory-only"
	default:
		return "none"
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
