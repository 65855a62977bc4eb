package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-labs/docent/internal/domain"
)

// Composition modes.
const (
	ModeGenerative = "generative"
	ModeExtractive = "extractive"
)

// systemPrompt restricts the model to the supplied context and mandates the
// canonical refusal phrase. Prior turns are for reference resolution only.
const systemPrompt = "You are a precise and concise academic tutor.\n" +
	"Answer ONLY with content present in the provided context.\n" +
	"If the context does not clearly answer the question, reply exactly: " +
	domain.Sentinel + "\n" +
	"Prior conversation turns may only be used to resolve references, never as a source of facts.\n" +
	"No generalities, no invention. Answer in 1 to 3 sentences."

// ComposerConfig holds answer-composition settings.
type ComposerConfig struct {
	Mode           string // generative or extractive
	MaxAnswerChars int    // extractive display limit
	HistoryTail    int    // prior turns forwarded for coreference
}

// Composer produces the answer text once the gate has admitted the context.
type Composer struct {
	generator domain.Generator
	cfg       ComposerConfig
}

// NewComposer creates a composer. The generator may be nil in extractive
// mode.
func NewComposer(gen domain.Generator, cfg ComposerConfig) *Composer {
	if cfg.Mode == "" {
		cfg.Mode = ModeGenerative
	}
	if cfg.MaxAnswerChars <= 0 {
		cfg.MaxAnswerChars = 600
	}
	if cfg.HistoryTail < 0 {
		cfg.HistoryTail = 0
	}
	return &Composer{generator: gen, cfg: cfg}
}

// Mode returns the configured composition mode.
func (c *Composer) Mode() string { return c.cfg.Mode }

// Extractive returns the winning chunk's content, truncated at the last
// sentence-ending punctuation before the display limit. A truncation marker
// is appended when the cut drops text.
func (c *Composer) Extractive(top domain.Chunk) string {
	text := strings.TrimSpace(top.Content())
	runes := []rune(text)
	if len(runes) <= c.cfg.MaxAnswerChars {
		return text
	}

	// Cut on a rune boundary; accented corpus text would otherwise split a
	// multi-byte sequence.
	cut := string(runes[:c.cfg.MaxAnswerChars])
	if i := strings.LastIndexAny(cut, ".!?"); i > 0 {
		return cut[:i+1] + " […]"
	}
	return strings.TrimSpace(cut) + " […]"
}

// Generative sends the constrained prompt to the backend and returns the raw
// answer text. Post-generation gate checks are the caller's responsibility.
func (c *Composer) Generative(ctx context.Context, question, ragContext string, history []domain.Message) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("no generative backend configured: %w", domain.ErrBackendUnavailable)
	}

	messages := make([]domain.Message, 0, c.cfg.HistoryTail+1)
	messages = append(messages, tail(history, c.cfg.HistoryTail)...)
	messages = append(messages, domain.Message{
		Role: "user",
		Content: fmt.Sprintf(
			"Context:\n%s\n\nQuestion: %s\n\n"+
				"Answer in 1 to 3 sentences, using ONLY this context. "+
				"If the context does not contain the answer, say: %s",
			ragContext, question, domain.Sentinel,
		),
	})

	answer, err := c.generator.Generate(ctx, systemPrompt, messages)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// tail returns the last n history turns.
func tail(history []domain.Message, n int) []domain.Message {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}
