package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/nymav/drax-tbs/internal/infrastructure/embedding"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// warmupTimeout 启动检查的总超时
const warmupTimeout = 10 * time.Second

// WarmupReport 启动检查结果
type WarmupReport struct {
	EmbeddingOK bool     `json:"embedding_ok"`
	ModelOK     bool     `json:"model_ok"`
	Models      []string `json:"models"`
}

// Initializer 启动时应用模型设置并检查外部服务
// 外部服务不可达不阻止启动，问答流程会按回退策略处理
type Initializer struct {
	embedder *embedding.Client
	models   *ModelService
	logger   *slog.Logger
}

// NewInitializer 创建初始化器
func NewInitializer(embedder *embedding.Client, models *ModelService) *Initializer {
	return &Initializer{
		embedder: embedder,
		models:   models,
		logger:   log.NewModuleLogger("rag", "initializer"),
	}
}

// Warmup 应用持久化设置并探测 Embedding 与模型服务
func (i *Initializer) Warmup(ctx context.Context) *WarmupReport {
	report := &WarmupReport{Models: []string{}}

	if err := i.models.Apply(); err != nil {
		i.logger.Warn("Failed to apply model settings, using defaults", "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	if err := i.embedder.TestConnection(ctx); err != nil {
		i.logger.Warn("Embedding service unavailable", "error", err)
	} else {
		report.EmbeddingOK = true
	}

	models, err := i.models.ListModels(ctx)
	if err != nil {
		i.logger.Warn("Language model service unavailable", "error", err)
	} else {
		report.ModelOK = true
		report.Models = models
		i.logger.Info("Language model service reachable",
			"current_model", i.models.CurrentModel(),
			"available", len(models),
		)
	}

	return report
}
