package rag

import "context"

// HistoryRecord 会话历史行
type HistoryRecord struct {
	SessionID string `json:"-"`
	Role      string `json:"role"`
	Query     string `json:"query"`
	Answer    string `json:"answer"`
	CreatedAt int64  `json:"-"`
}

// HistoryRepository 会话历史仓储（核心只读，编排层追加）
type HistoryRepository interface {
	Append(ctx context.Context, record *HistoryRecord) error
	FindBySession(ctx context.Context, sessionID string) ([]*HistoryRecord, error)
}
