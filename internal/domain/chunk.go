package domain

import "fmt"

// Chunk is the atomic retrievable unit: a section or window of a source
// document together with its provenance metadata. Immutable after creation;
// the whole set is replaced on reindex.
type Chunk struct {
	content string
	source  string
	title   string
	seq     int
}

// NewChunk validates and creates a Chunk. Content must be non-empty,
// empty sections are dropped by the document store before this point.
func NewChunk(content, source, title string, seq int) (Chunk, error) {
	if content == "" {
		return Chunk{}, fmt.Errorf("chunk content is required")
	}
	if source == "" {
		return Chunk{}, fmt.Errorf("chunk source is required")
	}
	return Chunk{content: content, source: source, title: title, seq: seq}, nil
}

// ReconstructChunk creates a Chunk without validation (storage hydration).
func ReconstructChunk(content, source, title string, seq int) Chunk {
	return Chunk{content: content, source: source, title: title, seq: seq}
}

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Source returns the originating document path.
func (c Chunk) Source() string { return c.source }

// Title returns the section heading, if any.
func (c Chunk) Title() string { return c.title }

// Seq returns the chunk position within its source document.
func (c Chunk) Seq() int { return c.seq }

// ID returns a stable identifier derived from provenance. Two reindex runs
// over an unchanged corpus produce identical IDs.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.source, c.seq)
}
