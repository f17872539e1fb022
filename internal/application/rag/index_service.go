package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// IndexConfig 向量化写入配置
type IndexConfig struct {
	BatchSize   int
	Concurrency int
}

// IndexService 将文档块向量化并写入文档命名空间
type IndexService struct {
	embedder Embedder
	index    domainRAG.VectorIndex
	counter  TokenCounter
	config   IndexConfig
	logger   *slog.Logger
}

// NewIndexService 创建索引服务
func NewIndexService(embedder Embedder, index domainRAG.VectorIndex, counter TokenCounter, config IndexConfig) *IndexService {
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &IndexService{
		embedder: embedder,
		index:    index,
		counter:  counter,
		config:   config,
		logger:   log.NewModuleLogger("rag", "index"),
	}
}

// IndexDocument 向量化全部块并追加到 documentID 命名空间，返回写入块数
// 同一文档的重复调用会产生重复条目，由调用方串行化并避免重复写入
func (s *IndexService) IndexDocument(ctx context.Context, documentID string, chunks []string, meta domainRAG.DocumentMetadata) (int, error) {
	if len(chunks) == 0 {
		return 0, &domainRAG.ExtractionError{Source: documentID, Reason: "no text chunks extracted"}
	}

	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, err
	}

	chapters, err := json.Marshal(meta.Chapters)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal chapters: %w", err)
	}

	records := make([]domainRAG.Record, len(chunks))
	for i, text := range chunks {
		records[i] = domainRAG.Record{
			Text:   text,
			Vector: vectors[i],
			Metadata: map[string]any{
				domainRAG.MetaDocumentID: documentID,
				domainRAG.MetaTitle:      meta.Title,
				domainRAG.MetaChapters:   string(chapters),
			},
		}
	}

	if err := s.index.Save(ctx, documentID, records); err != nil {
		return 0, fmt.Errorf("failed to save vectors: %w", err)
	}

	attrs := []any{
		"document_id", documentID,
		"chunks", len(chunks),
		"dimension", len(vectors[0]),
	}
	if s.counter != nil {
		tokens := 0
		for _, c := range chunks {
			tokens += s.counter.CountTokens(c)
		}
		attrs = append(attrs, "tokens", tokens, "token_method", s.counter.Method())
	}
	log.FromContext(ctx, s.logger).Info("Document indexed", attrs...)

	return len(chunks), nil
}

// embedAll 按批并发向量化，结果与输入一一对应
func (s *IndexService) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	p := pool.New().
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(s.config.Concurrency)

	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchStart, batch := start, chunks[start:end]

		p.Go(func(ctx context.Context) error {
			out, err := s.embedder.Embed(ctx, batch)
			if err != nil {
				return fmt.Errorf("failed to embed chunks %d-%d: %w", batchStart, batchStart+len(batch), err)
			}
			if len(out) != len(batch) {
				return &domainRAG.EmbeddingMismatchError{Expected: len(batch), Got: len(out)}
			}
			copy(vectors[batchStart:], out)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	// 任何一个位置缺失都视为服务端故障
	got := 0
	for _, v := range vectors {
		if len(v) > 0 {
			got++
		}
	}
	if got != len(chunks) {
		return nil, &domainRAG.EmbeddingMismatchError{Expected: len(chunks), Got: got}
	}
	return vectors, nil
}
