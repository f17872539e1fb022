package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/domain/textbook"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// textbookRepository 教材目录 SQLite 仓储实现
type textbookRepository struct {
	db *sql.DB
}

// NewTextbookRepository 创建教材目录仓储实例
func NewTextbookRepository(db *sql.DB) textbook.Repository {
	if err := initTextbookTable(db); err != nil {
		log.NewModuleLogger("storage", "textbook").Error("Failed to init textbooks table", "error", err)
	}
	return &textbookRepository{db: db}
}

// initTextbookTable 初始化教材表
func initTextbookTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS textbooks (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		pages INTEGER NOT NULL DEFAULT 0,
		chapters TEXT NOT NULL DEFAULT '[]',
		original_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create textbooks table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_textbooks_created_at ON textbooks(created_at);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create textbooks index: %w", err)
	}

	return nil
}

// Save 保存教材（存在则覆盖）
func (r *textbookRepository) Save(ctx context.Context, book *textbook.Textbook) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = now
	if book.Status == "" {
		book.Status = textbook.StatusUploaded
	}

	chapters, err := marshalChapters(book.Chapters)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO textbooks (id, filename, title, author, pages, chapters, original_name, status, chunk_count, error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		filename = excluded.filename,
		title = excluded.title,
		author = excluded.author,
		pages = excluded.pages,
		chapters = excluded.chapters,
		original_name = excluded.original_name,
		status = excluded.status,
		chunk_count = excluded.chunk_count,
		error = excluded.error,
		updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		book.ID, book.Filename, book.Title, book.Author, book.Pages, chapters,
		book.OriginalName, string(book.Status), book.ChunkCount, book.Error,
		book.CreatedAt.UnixMilli(), book.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save textbook: %w", err)
	}
	return nil
}

// FindByID 根据 ID 查找教材
func (r *textbookRepository) FindByID(ctx context.Context, id string) (*textbook.Textbook, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, filename, title, author, pages, chapters, original_name, status, chunk_count, error, created_at, updated_at
	FROM textbooks WHERE id = ?`, id)

	book, err := scanTextbook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, textbook.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query textbook: %w", err)
	}
	return book, nil
}

// FindAll 按上传时间返回全部教材
func (r *textbookRepository) FindAll(ctx context.Context) ([]*textbook.Textbook, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, filename, title, author, pages, chapters, original_name, status, chunk_count, error, created_at, updated_at
	FROM textbooks ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query textbooks: %w", err)
	}
	defer rows.Close()

	books := make([]*textbook.Textbook, 0)
	for rows.Next() {
		book, err := scanTextbook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan textbook: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// UpdateIngestion 更新摄取状态与章节
func (r *textbookRepository) UpdateIngestion(ctx context.Context, id string, status textbook.Status, chapters []rag.Chapter, chunkCount int, errMsg string) error {
	var result sql.Result
	var err error

	if chapters != nil {
		encoded, mErr := marshalChapters(chapters)
		if mErr != nil {
			return mErr
		}
		result, err = r.db.ExecContext(ctx, `
		UPDATE textbooks SET status = ?, chapters = ?, chunk_count = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), encoded, chunkCount, errMsg, time.Now().UnixMilli(), id)
	} else {
		result, err = r.db.ExecContext(ctx, `
		UPDATE textbooks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), errMsg, time.Now().UnixMilli(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update textbook ingestion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return textbook.ErrNotFound
	}
	return nil
}

// Delete 删除教材
func (r *textbookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM textbooks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete textbook: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return textbook.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTextbook 扫描一行教材记录
func scanTextbook(row rowScanner) (*textbook.Textbook, error) {
	var (
		book      textbook.Textbook
		chapters  string
		status    string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&book.ID, &book.Filename, &book.Title, &book.Author, &book.Pages, &chapters,
		&book.OriginalName, &status, &book.ChunkCount, &book.Error, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	book.Status = textbook.Status(status)
	book.CreatedAt = time.UnixMilli(createdAt)
	book.UpdatedAt = time.UnixMilli(updatedAt)
	book.Chapters = []rag.Chapter{}
	if chapters != "" {
		if err := json.Unmarshal([]byte(chapters), &book.Chapters); err != nil {
			return nil, fmt.Errorf("failed to parse chapters: %w", err)
		}
	}
	return &book, nil
}

func marshalChapters(chapters []rag.Chapter) (string, error) {
	if chapters == nil {
		return "[]", nil
	}
	data, err := json.Marshal(chapters)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chapters: %w", err)
	}
	return string(data), nil
}
