package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nymav/drax-tbs/internal/domain/events"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/domain/textbook"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

var (
	// ErrFileNotFound 教材 PDF 文件不存在
	ErrFileNotFound = errors.New("pdf file not found")
	// ErrUploadTooLarge 上传文件超过大小上限
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	// ErrEmptyUpload 上传内容为空
	ErrEmptyUpload = errors.New("upload is empty")
)

// StatusEmbedded Embed 成功时返回的状态
const StatusEmbedded = "embedded"

// TextbookConfig 教材存储配置
type TextbookConfig struct {
	UploadDir string
	MaxUpload int64
}

// UploadResult 上传结果
type UploadResult struct {
	PDFID  string `json:"pdf_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Pages  int    `json:"pages"`
}

// TextbookView 教材列表条目
type TextbookView struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Author       string `json:"author"`
	Pages        int    `json:"pages"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
	Chunks       int    `json:"chunks"`
}

// EmbedResult 向量化结果
type EmbedResult struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// ProgressFunc 摄取阶段回调
type ProgressFunc func(stage events.Stage, chunks int, err error)

// TextbookService 教材上传、目录与向量化
type TextbookService struct {
	repo     textbook.Repository
	parser   DocumentParser
	ingestor *Ingestor
	indexer  *IndexService
	index    domainRAG.VectorIndex
	config   TextbookConfig
	logger   *slog.Logger
}

// NewTextbookService 创建教材服务
func NewTextbookService(
	repo textbook.Repository,
	parser DocumentParser,
	ingestor *Ingestor,
	indexer *IndexService,
	index domainRAG.VectorIndex,
	config TextbookConfig,
) *TextbookService {
	return &TextbookService{
		repo:     repo,
		parser:   parser,
		ingestor: ingestor,
		indexer:  indexer,
		index:    index,
		config:   config,
		logger:   log.NewModuleLogger("rag", "textbook"),
	}
}

// Upload 保存上传的 PDF 并登记到目录
// 文件以生成的 ID 命名，与原始文件名解耦
func (s *TextbookService) Upload(ctx context.Context, originalName string, r io.Reader) (*UploadResult, error) {
	if err := os.MkdirAll(s.config.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	id := uuid.New().String()
	filename := id + ".pdf"
	path := filepath.Join(s.config.UploadDir, filename)

	if err := s.writeFile(path, r); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	book := &textbook.Textbook{
		ID:           id,
		Filename:     filename,
		Title:        stem,
		Author:       textbook.DefaultAuthor,
		Chapters:     []domainRAG.Chapter{},
		OriginalName: stem,
		Status:       textbook.StatusUploaded,
	}

	// 元数据读取失败不影响上传
	if doc, err := s.parser.Parse(ctx, path); err != nil {
		s.logger.Warn("Failed to read pdf metadata",
			"document_id", id,
			"error", err,
		)
	} else {
		book.Title = firstNonEmpty(doc.Title, stem)
		book.Author = firstNonEmpty(doc.Author, textbook.DefaultAuthor)
		book.Pages = len(doc.Pages)
	}

	if err := s.repo.Save(ctx, book); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to save textbook: %w", err)
	}

	s.logger.Info("Textbook uploaded",
		"document_id", id,
		"original_name", originalName,
		"pages", book.Pages,
	)

	return &UploadResult{
		PDFID:  id,
		Title:  book.Title,
		Author: book.Author,
		Pages:  book.Pages,
	}, nil
}

// writeFile 写入上传内容，超过上限时删除半成品
func (s *TextbookService) writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	src := r
	if s.config.MaxUpload > 0 {
		src = io.LimitReader(r, s.config.MaxUpload+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case err != nil:
		err = fmt.Errorf("failed to write file: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("failed to close file: %w", closeErr)
	case n == 0:
		err = ErrEmptyUpload
	case s.config.MaxUpload > 0 && n > s.config.MaxUpload:
		err = ErrUploadTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// List 列出目录中的教材
func (s *TextbookService) List(ctx context.Context) ([]*TextbookView, error) {
	books, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list textbooks: %w", err)
	}

	views := make([]*TextbookView, 0, len(books))
	for _, b := range books {
		title := b.DisplayTitle()
		author := b.Author
		if author == "" {
			author = textbook.DefaultAuthor
		}
		views = append(views, &TextbookView{
			ID:           b.ID,
			Filename:     b.Filename,
			Title:        title,
			Name:         title,
			Author:       author,
			Pages:        b.Pages,
			OriginalName: b.OriginalName,
			Status:       string(b.Status),
			Chunks:       b.ChunkCount,
		})
	}
	return views, nil
}

// Get 查询单本教材
func (s *TextbookService) Get(ctx context.Context, id string) (*textbook.Textbook, error) {
	return s.repo.FindByID(ctx, id)
}

// FilePath 教材 PDF 在磁盘上的路径
func (s *TextbookService) FilePath(id string) string {
	return filepath.Join(s.config.UploadDir, id+".pdf")
}

// Exists 教材 PDF 是否存在
func (s *TextbookService) Exists(id string) bool {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return false
	}
	info, err := os.Stat(s.FilePath(id))
	return err == nil && !info.IsDir()
}

// Embed 摄取并向量化教材，同一文档的调用必须由调用方串行化
// 已有索引会先被清空，避免重复条目
func (s *TextbookService) Embed(ctx context.Context, id string, progress ProgressFunc) (*EmbedResult, error) {
	if progress == nil {
		progress = func(events.Stage, int, error) {}
	}
	if !s.Exists(id) {
		return nil, ErrFileNotFound
	}
	ctx = log.WithDocumentID(ctx, id)
	logger := log.FromContext(ctx, s.logger)

	book, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, textbook.ErrNotFound) {
		// 文件存在但未登记，补登记后继续
		book = &textbook.Textbook{ID: id, Filename: id + ".pdf", Author: textbook.DefaultAuthor}
		if err := s.repo.Save(ctx, book); err != nil {
			return nil, fmt.Errorf("failed to register textbook: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load textbook: %w", err)
	}

	s.setStatus(ctx, book, textbook.StatusIngesting, nil, 0, "")
	result, err := s.embed(ctx, book, progress)
	if err != nil {
		logger.Error("Failed to embed textbook", "error", err)
		s.setStatus(ctx, book, textbook.StatusFailed, nil, 0, err.Error())
		progress(events.StageFailed, 0, err)
		return nil, err
	}

	logger.Info("Textbook embedded", "chunks", result.Chunks)
	return result, nil
}

func (s *TextbookService) embed(ctx context.Context, book *textbook.Textbook, progress ProgressFunc) (*EmbedResult, error) {
	progress(events.StageExtracting, 0, nil)
	defaults := domainRAG.DocumentMetadata{
		Title:  book.DisplayTitle(),
		Author: book.Author,
	}
	ingested, err := s.ingestor.IngestFile(ctx, s.FilePath(book.ID), defaults)
	if err != nil {
		return nil, err
	}

	if err := s.index.DeleteNamespace(ctx, book.ID); err != nil && !errors.Is(err, domainRAG.ErrNamespaceNotFound) {
		return nil, fmt.Errorf("failed to clear previous index: %w", err)
	}

	progress(events.StageEmbedding, len(ingested.Chunks), nil)
	n, err := s.indexer.IndexDocument(ctx, book.ID, ingested.Chunks, ingested.Metadata)
	if err != nil {
		return nil, err
	}

	s.setStatus(ctx, book, textbook.StatusEmbedded, ingested.Metadata.Chapters, n, "")
	progress(events.StageIndexed, n, nil)

	return &EmbedResult{Status: StatusEmbedded, Chunks: n}, nil
}

// setStatus 更新目录中的摄取状态，失败只记录日志
func (s *TextbookService) setStatus(ctx context.Context, book *textbook.Textbook, status textbook.Status, chapters []domainRAG.Chapter, chunks int, errMsg string) {
	if chapters == nil {
		chapters = book.Chapters
	}
	if err := s.repo.UpdateIngestion(ctx, book.ID, status, chapters, chunks, errMsg); err != nil {
		log.FromContext(ctx, s.logger).Warn("Failed to update ingestion status",
			"status", status,
			"error", err,
		)
	}
}
