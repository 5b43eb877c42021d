// Package app assembles the adapters selected by configuration into the
// query, ingest and sync use cases.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/cache"
	"github.com/0xcro3dile/docqa-go/internal/adapters/convstore"
	"github.com/0xcro3dile/docqa-go/internal/adapters/embedding"
	"github.com/0xcro3dile/docqa-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docqa-go/internal/adapters/llm"
	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/retrieval"
	"github.com/0xcro3dile/docqa-go/internal/adapters/tokenizer"
	"github.com/0xcro3dile/docqa-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/conversation"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	"github.com/0xcro3dile/docqa-go/internal/infrastructure/metrics"
)

// App holds the wired use cases and the resources they own.
type App struct {
	Query  *usecases.QueryUseCase
	Ingest *usecases.IngestUseCase
	Cache  *cache.AnswerCache

	// Metrics is nil when metrics are disabled.
	Metrics http.Handler

	cfg     *config.Config
	loader  *loader.MultiLoader
	logger  *zap.Logger
	closers []func() error
}

// Build constructs every component named by cfg. Resources opened before a
// failure are released.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, loader: loader.NewMultiLoader()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := a.vectorStore()
	if err != nil {
		return nil, err
	}
	conversations, err := a.conversationStore(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := cache.NewAnswerCache(cfg.QA.CacheCapacity)
	if err != nil {
		return nil, err
	}
	a.Cache = answers

	embedder := embedding.NewOllamaAdapter(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Concurrency, logger.Named("embedding"))
	retriever := retrieval.NewVectorRetriever(embedder, store, cfg.VectorStore.MinScore)

	var observer ports.Observer = ports.NopObserver{}
	if cfg.Metrics.Enabled {
		o := metrics.NewObserver()
		observer = o
		a.Metrics = o.Handler()
	}

	a.Query = usecases.NewQueryUseCase(retriever, a.generator(), answers, conversations,
		usecases.WithTopK(cfg.QA.TopK),
		usecases.WithRecordCacheHits(cfg.QA.RecordCacheHits),
		usecases.WithCoalescing(cfg.QA.Coalesce),
		usecases.WithGenerationRetry(cfg.Generation.Attempts, cfg.Generation.RetryDelay),
		usecases.WithObserver(observer),
		usecases.WithQueryLogger(logger.Named("query")),
	)
	a.Ingest = usecases.NewIngestUseCase(embedder, store, a.loader, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap,
		usecases.WithIngestWorkers(cfg.Ingest.Workers),
		usecases.WithIngestLogger(logger.Named("ingest")),
	)

	logger.Info("application ready",
		zap.String("vectorstore", cfg.VectorStore.Type),
		zap.String("conversation", cfg.Conversation.Store),
		zap.String("generation", cfg.Generation.Provider),
	)
	return a, nil
}

func (a *App) vectorStore() (ports.VectorStore, error) {
	switch a.cfg.VectorStore.Type {
	case "memory", "":
		return vectordb.NewInMemoryStore(), nil
	case "sqlite":
		s, err := vectordb.NewSQLiteStore(a.cfg.VectorStore.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		a.logger.Info("vector store opened", zap.String("path", s.Path()))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", a.cfg.VectorStore.Type)
	}
}

func (a *App) conversationStore(ctx context.Context) (ports.ConversationStore, error) {
	c := a.cfg.Conversation
	switch c.Store {
	case "memory", "":
		var opts []conversation.Option
		if c.MaxTurns > 0 {
			opts = append(opts, conversation.WithMaxTurns(c.MaxTurns))
		}
		if c.MaxTokens > 0 {
			opts = append(opts, conversation.WithTokenLimit(a.tokenCounter(), c.MaxTokens))
		}
		return conversation.NewInMemoryStore(c.MaxSessions, opts...)
	case "redis":
		s, err := convstore.NewRedisStore(ctx, convstore.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPass,
			DB:       c.RedisDB,
			TTL:      c.TTL,
			MaxTurns: c.MaxTurns,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown conversation store %q", c.Store)
	}
}

// tokenCounter prefers the model's BPE encoding and falls back to a
// character estimate when it cannot be loaded.
func (a *App) tokenCounter() ports.TokenCounter {
	t, err := tokenizer.New(tokenizer.DefaultEncoding)
	if err != nil {
		a.logger.Warn("tiktoken unavailable, estimating tokens", zap.Error(err))
		return tokenizer.Approx{}
	}
	return t
}

func (a *App) generator() ports.Generator {
	g := a.cfg.Generation
	log := a.logger.Named("generation")
	if g.Provider == "openai" {
		return llm.NewOpenAIGenerator(llm.OpenAIConfig{
			APIKey:  g.APIKey,
			BaseURL: g.URL,
			Model:   g.Model,
			Timeout: g.Timeout,
		}, log)
	}
	opts := []llm.OllamaOption{llm.WithTimeout(g.Timeout), llm.WithLogger(log)}
	if g.RateLimit > 0 {
		opts = append(opts, llm.WithRateLimit(g.RateLimit, g.Burst))
	}
	return llm.NewOllamaGenerator(g.URL, g.Model, opts...)
}

// Sync returns a use case that mirrors dir into the vector store.
// The returned watcher is stopped by Close.
func (a *App) Sync() (*usecases.SyncUseCase, error) {
	w, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions(), a.logger.Named("watcher"))
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	a.closers = append(a.closers, w.Stop)
	return usecases.NewSyncUseCase(w, a.Ingest, loader.DocumentID, a.cfg.Ingest.Debounce, a.logger.Named("sync")), nil
}

// Close releases stores and watchers in reverse order of creation.
func (a *App) Close() error {
	var result error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result
}
