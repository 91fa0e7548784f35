package vectorstore

import (
	"context"

	"go.uber.org/zap"
)

// Config selects and configures the store backends.
type Config struct {
	// Qdrant configures the remote backend.
	Qdrant QdrantConfig

	// Local configures the fallback backend.
	Local LocalConfig
}

// Connect attempts the remote store first and falls back to local file
// storage when Qdrant is unreachable. The choice is permanent for the
// process lifetime; no reconnection is attempted mid-run.
func Connect(ctx context.Context, config Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	remote, err := NewQdrantStore(ctx, config.Qdrant, logger)
	if err == nil {
		return remote, nil
	}

	logger.Warn("could not connect to Qdrant, falling back to local file storage",
		zap.String("host", config.Qdrant.Host),
		zap.Int("port", config.Qdrant.Port),
		zap.Error(err))

	return NewLocalStore(config.Local, logger)
}
