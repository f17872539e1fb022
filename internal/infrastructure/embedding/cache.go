package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// Embedder 文本向量化接口
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// vectorStore 缓存存储抽象，未命中返回 (nil, nil)
type vectorStore interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// redisVectorStore 基于 Redis 的缓存存储
type redisVectorStore struct {
	cli *redis.Client
}

func (s *redisVectorStore) get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.cli.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (s *redisVectorStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cli.Set(ctx, key, value, ttl).Err()
}

// CachedEmbedder 对查询向量做 Redis 缓存
// 缓存故障只记录日志，不影响向量化结果
type CachedEmbedder struct {
	inner  Embedder
	store  vectorStore
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedEmbedder 创建带缓存的 Embedder
func NewCachedEmbedder(inner Embedder, cli *redis.Client, model string, ttl time.Duration) *CachedEmbedder {
	return newCachedEmbedder(inner, &redisVectorStore{cli: cli}, model, ttl)
}

func newCachedEmbedder(inner Embedder, store vectorStore, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		store:  store,
		model:  model,
		ttl:    ttl,
		logger: log.NewModuleLogger("embedding", "cache"),
	}
}

// Embed 先查缓存，未命中的文本交给底层 Embedder
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := e.cacheKey(text)
		raw, err := e.store.get(ctx, key)
		if err != nil {
			e.logger.Warn("Failed to read embedding cache", "error", err)
		}
		if len(raw) > 0 {
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil && len(vec) > 0 {
				result[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		e.logger.Debug("Embedding cache hit", "count", len(texts))
		return result, nil
	}

	vectors, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedding failure: expected %d vectors, got %d", len(missTexts), len(vectors))
	}

	for j, idx := range missIdx {
		result[idx] = vectors[j]
		raw, err := json.Marshal(vectors[j])
		if err != nil {
			continue
		}
		if err := e.store.set(ctx, e.cacheKey(missTexts[j]), raw, e.ttl); err != nil {
			e.logger.Warn("Failed to write embedding cache", "error", err)
		}
	}

	return result, nil
}

// cacheKey 以模型名和文本摘要生成缓存键
func (e *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "drax:emb:" + e.model + ":" + hex.EncodeToString(sum[:])
}

// NewRedisClient 根据配置创建 Redis 客户端，Addr 为空时返回 nil
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
