// Package chi exposes the HTTP API: chat, bare document QA, reindex, the
// task list, health, and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/assistant"
	"github.com/atelier-labs/docent/internal/domain"
	"github.com/atelier-labs/docent/internal/metrics"
	"github.com/atelier-labs/docent/internal/tools"
)

// Chatter is the assistant contract the transport depends on.
type Chatter interface {
	Chat(ctx context.Context, text string, history []domain.Message) (assistant.Reply, error)
}

// Engine is the document QA contract: answer, rebuild, report size.
type Engine interface {
	AnswerQuestion(ctx context.Context, question string, history []domain.Message) (domain.AnswerRecord, error)
	Reindex(ctx context.Context) error
	ChunkCount() int
}

// TodoStore is the task-list contract for the /v1/todos endpoints.
type TodoStore interface {
	List() []tools.TodoItem
	Add(text string) (tools.TodoItem, error)
	MarkDone(id int) (tools.TodoItem, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers and the domain-error mapping table.
type Server struct {
	chat          Chatter
	engine        Engine
	todos         TodoStore
	health        []domain.HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server. The todo store and health checkers
// are optional.
func NewServer(chat Chatter, engine Engine, logger *zap.Logger) *Server {
	s := &Server{chat: chat, engine: engine, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway, "backend_unavailable"),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"),
		sentinelHandler(tools.ErrTodoNotFound, http.StatusNotFound, "task_not_found"),
	}
	return s
}

// WithTodos attaches the task-list store.
func (s *Server) WithTodos(t TodoStore) *Server { s.todos = t; return s }

// WithHealthCheckers attaches backend health probes for /health.
func (s *Server) WithHealthCheckers(checkers ...domain.HealthChecker) *Server {
	s.health = append(s.health, checkers...)
	return s
}

// Router assembles the chi router with the standard middleware stack.
func (s *Server) Router(apiKeys []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.Chat)
		r.Post("/ask", s.Ask)
		r.Post("/reindex", s.Reindex)
		r.Get("/todos", s.ListTodos)
		r.Post("/todos", s.CreateTodo)
		r.Post("/todos/{id}/done", s.CompleteTodo)
	})
	return r
}

type chatRequest struct {
	Message string           `json:"message"`
	History []domain.Message `json:"history,omitempty"`
}

type sourceRef struct {
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
	Seq    int    `json:"seq"`
}

type chatResponse struct {
	Text     string      `json:"text"`
	Mode     string      `json:"mode"`
	Grounded bool        `json:"grounded"`
	Sources  []sourceRef `json:"sources,omitempty"`
}

// Chat handles POST /v1/chat: full routing through tools and document QA.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "message is required")
		return
	}

	reply, err := s.chat.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Text:     reply.Text,
		Mode:     reply.Mode,
		Grounded: reply.Grounded,
		Sources:  sourceRefs(reply.Sources),
	})
}

type askRequest struct {
	Question string           `json:"question"`
	History  []domain.Message `json:"history,omitempty"`
}

type askResponse struct {
	Answer   string      `json:"answer"`
	Grounded bool        `json:"grounded"`
	Sources  []sourceRef `json:"sources,omitempty"`
}

// Ask handles POST /v1/ask: document QA only, no tool routing.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "question is required")
		return
	}

	rec, err := s.engine.AnswerQuestion(r.Context(), req.Question, req.History)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:   rec.AnswerText,
		Grounded: rec.Grounded,
		Sources:  sourceRefs(rec.Sources),
	})
}

type reindexResponse struct {
	Chunks int `json:"chunks"`
}

// Reindex handles POST /v1/reindex: drop and rebuild the index.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reindex(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Chunks: s.engine.ChunkCount()})
}

type todoItemResponse struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// ListTodos handles GET /v1/todos.
func (s *Server) ListTodos(w http.ResponseWriter, _ *http.Request) {
	if s.todos == nil {
		writeError(w, http.StatusNotFound, "not_found", "task list is not enabled")
		return
	}
	items := s.todos.List()
	out := make([]todoItemResponse, len(items))
	for i, it := range items {
		out[i] = todoItemResponse{ID: it.ID, Text: it.Text, Done: it.Done}
	}
	writeJSON(w, http.StatusOK, out)
}

type createTodoRequest struct {
	Text string `json:"text"`
}

// CreateTodo handles POST /v1/todos.
func (s *Server) CreateTodo(w http.ResponseWriter, r *http.Request) {
	if s.todos == nil {
		writeError(w, http.StatusNotFound, "not_found", "task list is not enabled")
		return
	}
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	item, err := s.todos.Add(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, todoItemResponse{ID: item.ID, Text: item.Text, Done: item.Done})
}

// CompleteTodo handles POST /v1/todos/{id}/done.
func (s *Server) CompleteTodo(w http.ResponseWriter, r *http.Request) {
	if s.todos == nil {
		writeError(w, http.StatusNotFound, "not_found", "task list is not enabled")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid task id")
		return
	}
	item, err := s.todos.MarkDone(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todoItemResponse{ID: item.ID, Text: item.Text, Done: item.Done})
}

type healthResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// Health handles GET /health. A failing backend probe degrades the status.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	for _, hc := range s.health {
		if err := hc.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health probe failed", zap.Error(err))
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	chunks := 0
	if s.engine != nil {
		chunks = s.engine.ChunkCount()
	}
	writeJSON(w, httpStatus, healthResponse{Status: status, Chunks: chunks})
}

func sourceRefs(chunks []domain.Chunk) []sourceRef {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]sourceRef, len(chunks))
	for i, c := range chunks {
		out[i] = sourceRef{Source: c.Source(), Title: c.Title(), Seq: c.Seq()}
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
