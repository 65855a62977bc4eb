package llm

import (
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atelier-labs/docent/internal/domain"
)

func TestParseAPIError_RequestErrorDetail(t *testing.T) {
	err := parseAPIError("embedding", &openai.RequestError{
		HTTPStatusCode: 422,
		Body:           []byte(`{"detail":"model not found"}`),
	})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want wrapped ErrBackendUnavailable", err)
	}
	if !strings.Contains(err.Error(), "model not found") || !strings.Contains(err.Error(), "422") {
		t.Errorf("err = %v", err)
	}
}

func TestParseAPIError_APIError(t *testing.T) {
	err := parseAPIError("generation", &openai.APIError{
		HTTPStatusCode: 429,
		Message:        "rate limited",
	})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v", err)
	}
}

func TestParseAPIError_PlainError(t *testing.T) {
	err := parseAPIError("embedding", errors.New("connection refused"))
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("err = %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"boom"}`)); got != "boom" {
		t.Errorf("got %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("got %q", got)
	}
}
