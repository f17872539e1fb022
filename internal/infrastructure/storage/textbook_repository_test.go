package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/domain/textbook"
)

// setupTestDB 创建临时测试数据库
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestTextbookRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTextbookRepository(db)
	ctx := context.Background()

	book := &textbook.Textbook{
		Filename:     "abc.pdf",
		Title:        "Biology",
		Author:       textbook.DefaultAuthor,
		Pages:        120,
		OriginalName: "biology.pdf",
	}
	require.NoError(t, repo.Save(ctx, book))
	assert.NotEmpty(t, book.ID, "保存后应自动生成 ID")

	got, err := repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Biology", got.Title)
	assert.Equal(t, 120, got.Pages)
	assert.Equal(t, textbook.StatusUploaded, got.Status)
	assert.Empty(t, got.Chapters)
	assert.NotNil(t, got.Chapters)
}

func TestTextbookRepository_FindByID_NotFound(t *testing.T) {
	repo := NewTextbookRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, textbook.ErrNotFound)
}

func TestTextbookRepository_UpdateIngestion(t *testing.T) {
	repo := NewTextbookRepository(setupTestDB(t))
	ctx := context.Background()

	book := &textbook.Textbook{ID: "b1", Filename: "b1.pdf"}
	require.NoError(t, repo.Save(ctx, book))

	chapters := []rag.Chapter{
		{Title: "Chapter 1 Cells", Page: 1},
		{Title: "1.1 Membranes", Page: 3},
	}
	require.NoError(t, repo.UpdateIngestion(ctx, "b1", textbook.StatusEmbedded, chapters, 42, ""))

	got, err := repo.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, textbook.StatusEmbedded, got.Status)
	assert.Equal(t, 42, got.ChunkCount)
	assert.Equal(t, chapters, got.Chapters)

	// 不传章节时只更新状态
	require.NoError(t, repo.UpdateIngestion(ctx, "b1", textbook.StatusFailed, nil, 0, "boom"))
	got, err = repo.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, textbook.StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, 42, got.ChunkCount)
	assert.Len(t, got.Chapters, 2)

	assert.ErrorIs(t, repo.UpdateIngestion(ctx, "nope", textbook.StatusEmbedded, nil, 0, ""), textbook.ErrNotFound)
}

func TestTextbookRepository_FindAllOrdered(t *testing.T) {
	repo := NewTextbookRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Save(ctx, &textbook.Textbook{
			ID:        id,
			Filename:  id + ".pdf",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	books, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "first", books[0].ID)
	assert.Equal(t, "third", books[2].ID)
}

func TestTextbookRepository_Delete(t *testing.T) {
	repo := NewTextbookRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &textbook.Textbook{ID: "d1", Filename: "d1.pdf"}))
	require.NoError(t, repo.Delete(ctx, "d1"))
	assert.ErrorIs(t, repo.Delete(ctx, "d1"), textbook.ErrNotFound)
}
