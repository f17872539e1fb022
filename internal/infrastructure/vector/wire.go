package vector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/wire"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// ProviderSet 向量索引 ProviderSet
var ProviderSet = wire.NewSet(
	NewQdrantManager,
	ProvideIndex,
)

// ProvideIndex 按配置选择向量后端
func ProvideIndex(cfg *config.VectorConfig, db *sql.DB, manager *QdrantManager) (rag.VectorIndex, func(), error) {
	logger := log.NewModuleLogger("vector", "provider")

	switch cfg.Backend {
	case config.VectorBackendQdrant:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := manager.Connect(ctx, 10*time.Second); err != nil {
			return nil, nil, fmt.Errorf("failed to start qdrant backend: %w", err)
		}
		cleanup := func() {
			if err := manager.Close(); err != nil {
				logger.Warn("Failed to close qdrant client", "error", err)
			}
		}
		logger.Info("Using qdrant vector backend")
		return NewQdrantIndex(manager), cleanup, nil

	case config.VectorBackendMemory:
		logger.Info("Using in-memory vector backend")
		return NewMemoryIndex(), func() {}, nil

	case config.VectorBackendSQLite, "":
		logger.Info("Using sqlite vector backend")
		return NewSQLiteIndex(db), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
