// Package sdk is a thin Go client for the docent HTTP API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SourceRef points at the chunk an answer was grounded on.
type SourceRef struct {
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
	Seq    int    `json:"seq"`
}

// ChatReply is the assistant's reply to one turn.
type ChatReply struct {
	Text     string      `json:"text"`
	Mode     string      `json:"mode"`
	Grounded bool        `json:"grounded"`
	Sources  []SourceRef `json:"sources,omitempty"`
}

// Answer is a bare document QA result.
type Answer struct {
	Answer   string      `json:"answer"`
	Grounded bool        `json:"grounded"`
	Sources  []SourceRef `json:"sources,omitempty"`
}

// TodoItem is one task.
type TodoItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Health is the service health report.
type Health struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// APIError is a non-2xx response decoded from the API error body.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docent: %s (%s, http %d)", e.Message, e.Code, e.Status)
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to a docent server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat sends one user turn through the full assistant (tools + document QA).
func (c *Client) Chat(ctx context.Context, message string, history []Message) (ChatReply, error) {
	var out ChatReply
	err := c.do(ctx, http.MethodPost, "/v1/chat", map[string]any{
		"message": message,
		"history": history,
	}, &out)
	return out, err
}

// Ask runs bare document QA without tool routing.
func (c *Client) Ask(ctx context.Context, question string, history []Message) (Answer, error) {
	var out Answer
	err := c.do(ctx, http.MethodPost, "/v1/ask", map[string]any{
		"question": question,
		"history":  history,
	}, &out)
	return out, err
}

// Reindex drops and rebuilds the document index, returning the chunk count.
func (c *Client) Reindex(ctx context.Context) (int, error) {
	var out struct {
		Chunks int `json:"chunks"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/reindex", nil, &out)
	return out.Chunks, err
}

// Todos lists the current tasks.
func (c *Client) Todos(ctx context.Context) ([]TodoItem, error) {
	var out []TodoItem
	err := c.do(ctx, http.MethodGet, "/v1/todos", nil, &out)
	return out, err
}

// AddTodo appends a task.
func (c *Client) AddTodo(ctx context.Context, text string) (TodoItem, error) {
	var out TodoItem
	err := c.do(ctx, http.MethodPost, "/v1/todos", map[string]any{"text": text}, &out)
	return out, err
}

// CompleteTodo marks a task as done.
func (c *Client) CompleteTodo(ctx context.Context, id int) (TodoItem, error) {
	var out TodoItem
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/todos/%d/done", id), nil, &out)
	return out, err
}

// Health reports service status and index size.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("docent: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("docent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("docent: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("docent: decode response: %w", err)
	}
	return nil
}
