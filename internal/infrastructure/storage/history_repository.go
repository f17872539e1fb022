package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// historyRepository 会话历史 SQLite 仓储实现
type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository 创建会话历史仓储实例
func NewHistoryRepository(db *sql.DB) rag.HistoryRepository {
	if err := initHistoryTable(db); err != nil {
		log.NewModuleLogger("storage", "history").Error("Failed to init history table", "error", err)
	}
	return &historyRepository{db: db}
}

// initHistoryTable 初始化会话历史表
func initHistoryTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id, id);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}
	return nil
}

// Append 追加一条问答记录
func (r *historyRepository) Append(ctx context.Context, record *rag.HistoryRecord) error {
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().UnixMilli()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO history (session_id, role, query, answer, created_at) VALUES (?, ?, ?, ?, ?)",
		record.SessionID, record.Role, record.Query, record.Answer, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// FindBySession 按写入顺序返回会话历史
func (r *historyRepository) FindBySession(ctx context.Context, sessionID string) ([]*rag.HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT session_id, role, query, answer, created_at FROM history WHERE session_id = ? ORDER BY id ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := make([]*rag.HistoryRecord, 0)
	for rows.Next() {
		var rec rag.HistoryRecord
		if err := rows.Scan(&rec.SessionID, &rec.Role, &rec.Query, &rec.Answer, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
