package rag

import (
	"context"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// Embedder 文本向量化
// 返回的向量数量与输入一致且顺序不变
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LanguageModel 语言模型会话
// Complete 失败时返回可读的错误文本而不是 error
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) string
	Stream(ctx context.Context, prompt string, onDelta func(string) error) (string, error)
	CurrentModel() string
}

// DocumentParser 读取源文档的逐页文本
type DocumentParser interface {
	Parse(ctx context.Context, path string) (*domainRAG.SourceDocument, error)
}

// TokenCounter 统计 token 数
type TokenCounter interface {
	CountTokens(text string) int
	Method() string
}
