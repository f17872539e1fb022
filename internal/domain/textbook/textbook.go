// Package textbook 定义教材目录领域模型
package textbook

import (
	"context"
	"errors"
	"time"

	"github.com/nymav/drax-tbs/internal/domain/rag"
)

// ErrNotFound 教材不存在
var ErrNotFound = errors.New("textbook not found")

// Status 摄取状态
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusIngesting Status = "ingesting"
	StatusEmbedded  Status = "embedded"
	StatusFailed    Status = "failed"
)

// DefaultAuthor 缺省作者
const DefaultAuthor = "Unknown"

// Textbook 已上传的教材
// ID 与原始文件名解耦，摄取完成后不再修改
type Textbook struct {
	ID           string        `json:"id"`
	Filename     string        `json:"filename"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	Pages        int           `json:"pages"`
	Chapters     []rag.Chapter `json:"chapters"`
	OriginalName string        `json:"original_name"`
	Status       Status        `json:"status"`
	ChunkCount   int           `json:"chunk_count"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// DisplayTitle 展示用标题：title → original_name → filename
func (t *Textbook) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	if t.OriginalName != "" {
		return t.OriginalName
	}
	return t.Filename
}

// Repository 教材目录仓储
type Repository interface {
	Save(ctx context.Context, book *Textbook) error
	FindByID(ctx context.Context, id string) (*Textbook, error)
	FindAll(ctx context.Context) ([]*Textbook, error)
	UpdateIngestion(ctx context.Context, id string, status Status, chapters []rag.Chapter, chunkCount int, errMsg string) error
	Delete(ctx context.Context, id string) error
}
