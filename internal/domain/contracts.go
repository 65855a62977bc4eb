package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implementations are deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator is the generative backend contract: a system instruction plus
// messages in, text out, synchronously. Unreachable backends surface as
// ErrBackendUnavailable.
type Generator interface {
	Generate(ctx context.Context, system string, messages []Message) (string, error)
}

// HealthChecker verifies backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
