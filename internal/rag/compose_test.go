package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/atelier-labs/docent/internal/domain"
)

func TestExtractive_ShortContentVerbatim(t *testing.T) {
	c := NewComposer(nil, ComposerConfig{Mode: ModeExtractive, MaxAnswerChars: 100})
	chunk := domain.ReconstructChunk("Paris is the capital of France.", "geo.md", "", 0)

	if got := c.Extractive(chunk); got != "Paris is the capital of France." {
		t.Errorf("Extractive = %q, want verbatim content", got)
	}
}

func TestExtractive_TruncatesAtSentenceEnd(t *testing.T) {
	c := NewComposer(nil, ComposerConfig{Mode: ModeExtractive, MaxAnswerChars: 50})
	chunk := domain.ReconstructChunk(
		"First sentence ends here. Second sentence continues well past the limit and keeps going.",
		"a.md", "", 0,
	)

	got := c.Extractive(chunk)
	if !strings.HasPrefix(got, "First sentence ends here.") {
		t.Errorf("Extractive = %q, want cut after first sentence", got)
	}
	if !strings.HasSuffix(got, "[…]") {
		t.Errorf("Extractive = %q, want truncation marker", got)
	}
	if strings.Contains(got, "keeps going") {
		t.Errorf("Extractive = %q leaked text past the limit", got)
	}
}

func TestExtractive_CutsOnRuneBoundary(t *testing.T) {
	// Accented content must never be split inside a multi-byte sequence.
	c := NewComposer(nil, ComposerConfig{Mode: ModeExtractive, MaxAnswerChars: 10})
	chunk := domain.ReconstructChunk("éééééééééééééééééééé", "réseaux.md", "", 0)

	got := c.Extractive(chunk)
	if !utf8.ValidString(got) {
		t.Fatalf("Extractive = %q is not valid UTF-8", got)
	}
	if strings.Contains(got, "�") {
		t.Errorf("Extractive = %q contains a replacement rune", got)
	}
	if n := strings.Count(got, "é"); n != 10 {
		t.Errorf("Extractive kept %d runes before the marker, want 10: %q", n, got)
	}
}

func TestExtractive_NoSentenceBoundary(t *testing.T) {
	c := NewComposer(nil, ComposerConfig{Mode: ModeExtractive, MaxAnswerChars: 20})
	chunk := domain.ReconstructChunk("wordswithoutanypunctuationatallkeepgoing", "a.md", "", 0)

	got := c.Extractive(chunk)
	if len(got) > 20+len(" […]") {
		t.Errorf("Extractive = %q longer than limit plus marker", got)
	}
	if !strings.HasSuffix(got, "[…]") {
		t.Errorf("Extractive = %q, want truncation marker", got)
	}
}
