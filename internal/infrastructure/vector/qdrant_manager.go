package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// QdrantManager 管理到外部 Qdrant 服务的连接
type QdrantManager struct {
	host   string
	port   int
	mu     sync.Mutex
	client *qdrant.Client
	logger *slog.Logger
}

// NewQdrantManager 创建 Qdrant 管理器
func NewQdrantManager(cfg *config.VectorConfig) *QdrantManager {
	return &QdrantManager{
		host:   cfg.QdrantHost,
		port:   cfg.QdrantPort,
		logger: log.NewModuleLogger("vector", "qdrant"),
	}
}

// Connect 建立连接并等待服务就绪
func (q *QdrantManager) Connect(ctx context.Context, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		return nil
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: q.host,
		Port: q.port,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	if err := waitForReady(ctx, client, timeout); err != nil {
		_ = client.Close()
		return fmt.Errorf("qdrant failed to become ready: %w", err)
	}

	q.client = client
	q.logger.Info("Connected to qdrant",
		"host", q.host,
		"port", q.port,
	)
	return nil
}

// GetClient 获取 Qdrant 客户端，未连接时返回 nil
func (q *QdrantManager) GetClient() *qdrant.Client {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client
}

// Health 检查服务状态
func (q *QdrantManager) Health(ctx context.Context) error {
	client := q.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}
	_, err := client.ListCollections(ctx)
	return err
}

// Close 关闭连接
func (q *QdrantManager) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client == nil {
		return nil
	}
	err := q.client.Close()
	q.client = nil
	return err
}

// waitForReady 轮询直到能列出集合
func waitForReady(ctx context.Context, client *qdrant.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := client.ListCollections(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for qdrant to be ready: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// ensureCollection 确保集合存在
func ensureCollection(ctx context.Context, client *qdrant.Client, name string, vectorSize uint64) error {
	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}
