package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline Prometheus metrics.
var (
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "answers_total",
			Help:      "Answered questions by outcome",
		},
		[]string{"outcome"}, // "grounded" / "not_found" / "error"
	)

	GateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "gate_rejections_total",
			Help:      "Relevance gate rejections by failing check",
		},
		[]string{"check"}, // "empty_context", "lexical_overlap", "strong_keywords", "numeric_consistency", "refusal_echo"
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docent",
			Name:      "retrieval_duration_seconds",
			Help:      "Index query and consolidation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	ReindexTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "reindex_total",
			Help:      "Index rebuilds by result",
		},
		[]string{"result"}, // "ok" / "error"
	)

	IndexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docent",
			Name:      "index_chunks",
			Help:      "Number of chunks currently indexed",
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "generation_requests_total",
			Help:      "Total number of generative backend calls",
		},
		[]string{"model", "status"},
	)
)

var ragMetricsRegistered bool

// RegisterRAGMetrics registers the RAG pipeline metrics. Must be called once from main.
func RegisterRAGMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(GateRejectionsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(ReindexTotal)
	prometheus.MustRegister(IndexChunks)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	ragMetricsRegistered = true
}
