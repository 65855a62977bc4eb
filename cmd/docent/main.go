// docent is a grounded document-QA assistant: documents in, an HTTP chat
// API out. Answers are either grounded in the indexed corpus or a fixed
// refusal; tools (calculator, weather, web search, todo, mail) are routed
// in front.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/assistant"
	"github.com/atelier-labs/docent/internal/config"
	"github.com/atelier-labs/docent/internal/docstore"
	"github.com/atelier-labs/docent/internal/domain"
	"github.com/atelier-labs/docent/internal/index"
	"github.com/atelier-labs/docent/internal/llm"
	logpkg "github.com/atelier-labs/docent/internal/logger"
	"github.com/atelier-labs/docent/internal/metrics"
	"github.com/atelier-labs/docent/internal/rag"
	"github.com/atelier-labs/docent/internal/tools"
	chiTransport "github.com/atelier-labs/docent/internal/transport/chi"
	"github.com/atelier-labs/docent/internal/version"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting docent",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
	)

	metrics.RegisterRAGMetrics()

	store := docstore.New(cfg.Docs.Dir, docstore.Splitter{
		ChunkSize: cfg.Docs.ChunkSize,
		Overlap:   cfg.Docs.ChunkOverlap,
	}, logger)

	embedder := llm.NewEmbedder(llm.EmbedderConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	generator := llm.NewGenerator(llm.GeneratorConfig{
		BaseURL:     cfg.Generator.BaseURL,
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		Logger:      logger,
	})

	ix, err := buildIndex(cfg, store, embedder, logger)
	if err != nil {
		logger.Fatal("index init", zap.Error(err))
	}

	retriever := rag.NewRetriever(ix, rag.RetrieverConfig{
		TopK:          cfg.Retrieval.TopK,
		ContextBudget: cfg.Retrieval.ContextBudget,
	})
	gate := rag.NewGate(rag.GateConfig{
		MinTokenLen:    cfg.Gate.MinTokenLen,
		FuzzyMinLen:    cfg.Gate.FuzzyMinLen,
		FuzzyPrefixLen: cfg.Gate.FuzzyPrefixLen,
		StrongMinLen:   cfg.Gate.StrongMinLen,
	})
	composer := rag.NewComposer(generator, rag.ComposerConfig{
		Mode:           cfg.Generator.Mode,
		MaxAnswerChars: cfg.Gate.MaxAnswerChars,
		HistoryTail:    cfg.Generator.HistoryTail,
	})
	engine := rag.NewEngine(ix, retriever, gate, composer, logger)

	openCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := engine.Open(openCtx); err != nil {
		cancel()
		logger.Fatal("index open", zap.Error(err))
	}
	cancel()
	logger.Info("index ready", zap.Int("chunks", engine.ChunkCount()))

	bot := assistant.New(engine, logger).
		WithGenerator(generator).
		WithWeather(tools.NewWeatherClient(
			time.Duration(cfg.Tools.WeatherTimeout)*time.Second, cfg.Tools.UserAgent, logger)).
		WithSearcher(tools.NewWebSearcher(
			15*time.Second, cfg.Tools.UserAgent, cfg.Tools.SearchResults, logger)).
		WithMailer(tools.NewMailer(tools.SMTPConfig{
			Host:     cfg.Tools.SMTP.Host,
			Port:     cfg.Tools.SMTP.Port,
			Username: cfg.Tools.SMTP.User,
			Password: cfg.Tools.SMTP.Pass,
			From:     cfg.Tools.SMTP.From,
		}, logger))

	server := chiTransport.NewServer(bot, engine, logger).
		WithHealthCheckers(embedder)

	if cfg.Tools.TodoPath != "" {
		todoStore, err := tools.NewTodoStore(cfg.Tools.TodoPath, logger)
		if err != nil {
			logger.Fatal("todo store init", zap.Error(err))
		}
		bot.WithTodos(todoStore)
		server.WithTodos(todoStore)
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildIndex selects the index driver from config.
func buildIndex(cfg config.Config, store *docstore.Store, embedder domain.Embedder, logger *zap.Logger) (index.Index, error) {
	switch cfg.Index.Driver {
	case "", "file":
		return index.NewFileIndex(cfg.Index.DataDir, cfg.Index.Collection, store, embedder, logger), nil
	case "redis":
		ix, err := index.NewRedisIndex(index.RedisConfig{
			Addrs:    cfg.Index.Redis.Addrs,
			Password: cfg.Index.Redis.Password,
		}, cfg.Index.Collection, store, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("redis index: %w", err)
		}
		return ix, nil
	case "lexical":
		return index.NewLexicalIndex(store, index.LexicalConfig{
			TitleWeight:        cfg.Retrieval.TitleWeight,
			MinTitleSimilarity: cfg.Retrieval.MinTitleSimilarity,
			MinKeywordOverlap:  cfg.Retrieval.MinKeywordOverlap,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
}
