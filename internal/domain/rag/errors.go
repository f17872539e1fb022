package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction 摄取没有产出任何文本块
	ErrExtraction = errors.New("no text chunks extracted from document")
	// ErrNamespaceNotFound 命名空间不存在
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrModelUnavailable 语言模型不可达或超时
	ErrModelUnavailable = errors.New("language model unavailable")
)

// ExtractionError 摄取输入无效（4xx 类）
type ExtractionError struct {
	Source string
	Reason string
}

func (e *ExtractionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("extraction failed for %s", e.Source)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.Source, e.Reason)
}

// Unwrap 支持 errors.Is(err, ErrExtraction)
func (e *ExtractionError) Unwrap() error {
	return ErrExtraction
}

// EmbeddingMismatchError 向量数量与输入数量不一致（服务端故障）
type EmbeddingMismatchError struct {
	Expected int
	Got      int
}

func (e *EmbeddingMismatchError) Error() string {
	return fmt.Sprintf("embedding failure: expected %d vectors, got %d", e.Expected, e.Got)
}
