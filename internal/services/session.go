// Package services wires the prepd components into one explicitly
// constructed session.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/prepstack/prepd/internal/chunker"
	"github.com/prepstack/prepd/internal/config"
	"github.com/prepstack/prepd/internal/embeddings"
	"github.com/prepstack/prepd/internal/llm"
	"github.com/prepstack/prepd/internal/telemetry"
	"github.com/prepstack/prepd/internal/vectorstore"
)

// Session holds the constructed clients for one process: embedding
// model, vector store, and optional LLM. There are no ambient
// singletons; callers build a Session, use it, and Close it, which
// keeps ingestion and querying independently testable.
type Session struct {
	Config   *config.Config
	Logger   *zap.Logger
	Chunker  *chunker.Chunker
	Embedder *embeddings.Service
	Store    vectorstore.Store
	Model    llms.Model // nil when no LLM credential is configured

	telemetry *telemetry.Telemetry
}

// New builds a Session from config. The vector store backend (remote or
// local fallback) is decided here, once, for the process lifetime.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	ch, err := chunker.New(chunker.Config{
		Size:              cfg.Chunking.Size,
		Overlap:           cfg.Chunking.Overlap,
		MinLength:         cfg.Chunking.MinLength,
		BoundaryThreshold: cfg.Chunking.BoundaryThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL:   cfg.Embeddings.BaseURL,
		Model:     cfg.Embeddings.Model,
		Dimension: cfg.Embeddings.Dimension,
		Timeout:   cfg.Embeddings.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := vectorstore.Connect(ctx, vectorstore.Config{
		Qdrant: vectorstore.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		},
		Local: vectorstore.LocalConfig{
			Path:       cfg.Local.Path,
			Collection: cfg.Qdrant.Collection,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting vector store: %w", err)
	}

	model, err := llm.New(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			_ = store.Close()
			return nil, fmt.Errorf("creating llm client: %w", err)
		}
		logger.Warn("no LLM credential configured; answers will return retrieved contexts only")
		model = nil
	}

	return &Session{
		Config:    cfg,
		Logger:    logger,
		Chunker:   ch,
		Embedder:  embedder,
		Store:     store,
		Model:     model,
		telemetry: tel,
	}, nil
}

// Close releases the session's resources and flushes pending spans.
func (s *Session) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.telemetry.Shutdown(context.Background()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
