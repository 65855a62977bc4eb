package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/domain"
	"github.com/atelier-labs/docent/internal/index"
	"github.com/atelier-labs/docent/internal/logger"
	"github.com/atelier-labs/docent/internal/metrics"
)

// Engine wires retriever, gate, extractors, and composer over one index.
// It is the explicit handle request paths receive instead of process-wide
// globals; constructed once at startup, shared across requests. Queries take
// the read side of the lock, Reindex the write side, so a rebuild never runs
// concurrently with an in-flight retrieval.
type Engine struct {
	mu         sync.RWMutex
	index      index.Index
	retriever  *Retriever
	gate       *Gate
	composer   *Composer
	extractors []Extractor
	logger     *zap.Logger
}

// NewEngine assembles the pipeline. The default extractor set handles OSI and
// TCP/IP layer enumerations; more shapes register here as they come up.
func NewEngine(ix index.Index, retriever *Retriever, gate *Gate, composer *Composer, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		index:      ix,
		retriever:  retriever,
		gate:       gate,
		composer:   composer,
		extractors: []Extractor{OSIExtractor{}, TCPIPExtractor{}},
		logger:     log,
	}
}

// Open prepares the index for querying, building it if needed.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.OpenOrBuild(ctx); err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	metrics.IndexChunks.Set(float64(e.index.Len()))
	return nil
}

// AnswerQuestion runs the full pipeline for one question. A gate rejection
// is a normal outcome carried in the record, never an error; errors are
// reserved for infrastructure failures (index or backend unreachable).
func (e *Engine) AnswerQuestion(ctx context.Context, question string, history []domain.Message) (domain.AnswerRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	log := logger.FromContext(ctx)

	start := time.Now()
	retrieval, err := e.retriever.Retrieve(ctx, question)
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("error").Inc()
		return domain.AnswerRecord{}, err
	}

	generative := e.composer.Mode() == ModeGenerative
	if check := e.gate.Screen(question, retrieval.Context, generative); check != "" {
		return e.reject(log, check), nil
	}

	// Structural extraction beats generation for order-sensitive list
	// questions; fall through when nothing is found.
	for _, ex := range e.extractors {
		if !ex.Match(question) {
			continue
		}
		if answer, ok := ex.Extract(retrieval.Context); ok {
			metrics.AnswersTotal.WithLabelValues("grounded").Inc()
			log.Debug("answer extracted structurally",
				zap.String("source", retrieval.Sources[0].Source()),
			)
			return domain.AnswerRecord{
				AnswerText: answer,
				Sources:    retrieval.Sources,
				Grounded:   true,
			}, nil
		}
	}

	if !generative {
		metrics.AnswersTotal.WithLabelValues("grounded").Inc()
		return domain.AnswerRecord{
			AnswerText: e.composer.Extractive(retrieval.Sources[0]),
			Sources:    retrieval.Sources,
			Grounded:   true,
		}, nil
	}

	answer, err := e.composer.Generative(ctx, question, retrieval.Context, history)
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("error").Inc()
		return domain.AnswerRecord{}, err
	}

	if check := e.gate.Inspect(answer, retrieval.Context); check != "" {
		return e.reject(log, check), nil
	}

	metrics.AnswersTotal.WithLabelValues("grounded").Inc()
	return domain.AnswerRecord{
		AnswerText: answer,
		Sources:    retrieval.Sources,
		Grounded:   true,
	}, nil
}

// Reindex discards persisted index state and rebuilds from the corpus.
// Idempotent; safe on an empty corpus.
func (e *Engine) Reindex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.index.Rebuild(ctx); err != nil {
		metrics.ReindexTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("rebuild index: %w", err)
	}
	metrics.ReindexTotal.WithLabelValues("ok").Inc()
	metrics.IndexChunks.Set(float64(e.index.Len()))
	e.logger.Info("index rebuilt", zap.Int("chunks", e.index.Len()))
	return nil
}

// ChunkCount returns the number of currently indexed chunks.
func (e *Engine) ChunkCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Len()
}

func (e *Engine) reject(log *zap.Logger, check string) domain.AnswerRecord {
	metrics.GateRejectionsTotal.WithLabelValues(check).Inc()
	metrics.AnswersTotal.WithLabelValues("not_found").Inc()
	log.Debug("relevance gate rejected query", zap.String("check", check))
	return domain.NotFound()
}

// Grounded reports whether an answer text is a real answer rather than the
// sentinel. Convenience for callers deciding on fallbacks.
func Grounded(rec domain.AnswerRecord) bool {
	return rec.Grounded && !strings.EqualFold(strings.TrimSpace(rec.AnswerText), domain.Sentinel)
}
