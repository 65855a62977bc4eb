package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/atelier-labs/docent/internal/domain"
)

func TestRetrieve_SameSourceConsolidation(t *testing.T) {
	ix := &mockIndex{chunks: []domain.Chunk{
		domain.ReconstructChunk("Routing tables direct packets.", "routing.md", "", 0),
		domain.ReconstructChunk("Cheese ripens in caves.", "food.md", "", 0),
		domain.ReconstructChunk("Static routes are configured by hand.", "routing.md", "", 1),
	}}
	r := NewRetriever(ix, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "how does routing work")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("got %d sources, want 2 from routing.md", len(got.Sources))
	}
	for _, c := range got.Sources {
		if c.Source() != "routing.md" {
			t.Errorf("source %q blended into context", c.Source())
		}
	}
	if strings.Contains(got.Context, "Cheese") {
		t.Errorf("unrelated document leaked into context:\n%s", got.Context)
	}
}

func TestRetrieve_ContextBudgetDropsWholeChunks(t *testing.T) {
	long := strings.Repeat("Seven words fill the line here now. ", 10) // ~370 chars
	ix := &mockIndex{chunks: []domain.Chunk{
		domain.ReconstructChunk(long, "a.md", "", 0),
		domain.ReconstructChunk(long, "a.md", "", 1),
		domain.ReconstructChunk(long, "a.md", "", 2),
	}}
	r := NewRetriever(ix, RetrieverConfig{ContextBudget: 800})

	got, err := r.Retrieve(context.Background(), "words")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got.Context) > 800 {
		t.Errorf("context length %d exceeds budget", len(got.Context))
	}
	// Two whole chunks fit; the third is dropped, never cut.
	if n := strings.Count(got.Context, "\n\n"); n != 1 {
		t.Errorf("context holds %d chunk separators, want 1 (two chunks)", n)
	}
}

func TestRetrieve_NewlinesCollapsed(t *testing.T) {
	ix := &mockIndex{chunks: []domain.Chunk{
		domain.ReconstructChunk("line one\nline two\nline three", "a.md", "", 0),
	}}
	r := NewRetriever(ix, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "lines")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Context != "line one line two line three" {
		t.Errorf("context = %q, want single-space joined", got.Context)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	r := NewRetriever(&mockIndex{}, RetrieverConfig{})
	got, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Context != "" || len(got.Sources) != 0 {
		t.Errorf("empty index produced %+v", got)
	}
}

func TestRestrictSubject_OSIFallback(t *testing.T) {
	chunks := []domain.Chunk{
		domain.ReconstructChunk("Nothing about the model here.", "a.md", "", 0),
	}
	// Filter would empty the set; the original candidates are kept.
	got := restrictSubject("what are the OSI layers", chunks)
	if len(got) != 1 {
		t.Errorf("fallback dropped candidates: %d", len(got))
	}
}
