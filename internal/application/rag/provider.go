package rag

import (
	"github.com/redis/go-redis/v9"

	"github.com/nymav/drax-tbs/internal/domain/events"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/domain/textbook"
	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/embedding"
	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/pdf"
	"github.com/nymav/drax-tbs/internal/infrastructure/tokenizer"
)

// ProvideIngestor 按切块配置创建摄取器
func ProvideIngestor(cfg *config.Config, reader *pdf.Reader) *Ingestor {
	return NewIngestor(reader, cfg.Chunking.MaxLen)
}

// ProvideIndexService 文档向量化直接使用 Embedding 客户端，不经过缓存
func ProvideIndexService(cfg *config.Config, client *embedding.Client, index domainRAG.VectorIndex, counter tokenizer.Counter) *IndexService {
	return NewIndexService(client, index, counter, IndexConfig{
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: cfg.Embedding.Concurrency,
	})
}

// ProvideTextbookService 创建教材服务
func ProvideTextbookService(
	cfg *config.Config,
	repo textbook.Repository,
	reader *pdf.Reader,
	ingestor *Ingestor,
	indexer *IndexService,
	index domainRAG.VectorIndex,
) *TextbookService {
	return NewTextbookService(repo, reader, ingestor, indexer, index, TextbookConfig{
		UploadDir: cfg.Storage.UploadDir,
		MaxUpload: cfg.Storage.MaxUpload,
	})
}

// ProvideIngestScheduler 创建后台摄取调度器
func ProvideIngestScheduler(cfg *config.Config, textbooks *TextbookService, bus events.EventBus) *IngestScheduler {
	return NewIngestScheduler(textbooks, bus, SchedulerConfig{
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
	})
}

// ProvideRAGService 查询向量在配置了 Redis 时走缓存
func ProvideRAGService(
	cfg *config.Config,
	client *embedding.Client,
	redisClient *redis.Client,
	index domainRAG.VectorIndex,
	session *llm.ModelSession,
	memory *ConversationMemory,
	history domainRAG.HistoryRepository,
) *RAGService {
	var embedder Embedder = client
	if redisClient != nil {
		embedder = embedding.NewCachedEmbedder(client, redisClient, client.Model(), cfg.Redis.TTL)
	}
	return NewRAGService(embedder, index, session, memory, history, ServiceConfig{
		TopK:            cfg.Vector.TopK,
		MemoryEnabled:   cfg.Memory.Enabled,
		MaxContextChars: cfg.Memory.MaxContextChars,
	})
}
