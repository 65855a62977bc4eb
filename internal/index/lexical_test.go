package index

import (
	"context"
	"testing"

	"github.com/atelier-labs/docent/internal/domain"
)

func lexicalFixture(t *testing.T) *LexicalIndex {
	t.Helper()
	chunks := []domain.Chunk{
		domain.ReconstructChunk("Paris is the capital of France.", "geo.md", "Capitals", 0),
		domain.ReconstructChunk("The TCP handshake has three steps.", "net.md", "TCP Handshake", 0),
		domain.ReconstructChunk("Cheese ripens in caves for months.", "food.md", "Affinage", 0),
	}
	ix := NewLexicalIndex(&mockLoader{chunks: chunks}, LexicalConfig{}, nil)
	if err := ix.OpenOrBuild(context.Background()); err != nil {
		t.Fatalf("OpenOrBuild: %v", err)
	}
	return ix
}

func TestLexicalIndex_DirectTitleMatch(t *testing.T) {
	ix := lexicalFixture(t)

	got, err := ix.Query(context.Background(), "tell me about the TCP handshake", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) == 0 || got[0].Source() != "net.md" {
		t.Fatalf("top chunk = %+v, want net.md", got)
	}
}

func TestLexicalIndex_TitleMatchIsAccentInsensitive(t *testing.T) {
	chunks := []domain.Chunk{
		domain.ReconstructChunk("Réseaux locaux et commutation.", "reseaux.md", "Réseaux", 0),
	}
	ix := NewLexicalIndex(&mockLoader{chunks: chunks}, LexicalConfig{}, nil)
	if err := ix.OpenOrBuild(context.Background()); err != nil {
		t.Fatalf("OpenOrBuild: %v", err)
	}

	got, err := ix.Query(context.Background(), "parle-moi des reseaux", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Source() != "reseaux.md" {
		t.Fatalf("top chunk = %+v, want reseaux.md", got)
	}
}

func TestLexicalIndex_KeywordOverlapFallback(t *testing.T) {
	ix := lexicalFixture(t)

	// No title is contained in the query; keyword overlap with the cheese
	// section (cheese, caves) clears the acceptance threshold.
	got, err := ix.Query(context.Background(), "why do caves matter for cheese", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Source() != "food.md" {
		t.Fatalf("top chunk = %+v, want food.md", got)
	}
}

func TestLexicalIndex_NoCandidateBelowThresholds(t *testing.T) {
	ix := lexicalFixture(t)

	got, err := ix.Query(context.Background(), "quantum entanglement experiments", 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got != nil {
		t.Fatalf("Query = %+v, want no candidates", got)
	}
}

func TestLexicalIndex_EmptyAndBounds(t *testing.T) {
	empty := NewLexicalIndex(&mockLoader{}, LexicalConfig{}, nil)
	if err := empty.OpenOrBuild(context.Background()); err != nil {
		t.Fatalf("OpenOrBuild: %v", err)
	}
	if got, _ := empty.Query(context.Background(), "anything", 4); got != nil {
		t.Errorf("Query on empty index = %v, want nil", got)
	}

	ix := lexicalFixture(t)
	got, err := ix.Query(context.Background(), "tcp handshake capitals cheese", 100)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) > ix.Len() {
		t.Errorf("Query returned %d chunks with only %d indexed", len(got), ix.Len())
	}
}

func TestLexicalIndex_RebuildRefreshesEntries(t *testing.T) {
	loader := &mockLoader{chunks: []domain.Chunk{
		domain.ReconstructChunk("First corpus.", "a.md", "Alpha", 0),
	}}
	ix := NewLexicalIndex(loader, LexicalConfig{}, nil)
	if err := ix.OpenOrBuild(context.Background()); err != nil {
		t.Fatalf("OpenOrBuild: %v", err)
	}
	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ix.Len())
	}

	loader.chunks = []domain.Chunk{
		domain.ReconstructChunk("Second corpus.", "b.md", "Beta", 0),
		domain.ReconstructChunk("More content.", "c.md", "Gamma", 0),
	}
	if err := ix.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if ix.Len() != 2 {
		t.Errorf("Len = %d after rebuild, want 2", ix.Len())
	}
}
