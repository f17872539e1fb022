package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/interfaces/http/response"
)

// textbookCatalog 教材目录操作
type textbookCatalog interface {
	Upload(ctx context.Context, originalName string, r io.Reader) (*appRAG.UploadResult, error)
	List(ctx context.Context) ([]*appRAG.TextbookView, error)
}

// embedRunner 同步执行摄取
type embedRunner interface {
	Run(ctx context.Context, documentID string) (*appRAG.EmbedResult, error)
}

// TextbookHandler 教材上传、摄取与列表
type TextbookHandler struct {
	catalog textbookCatalog
	runner  embedRunner
	logger  *slog.Logger
}

// NewTextbookHandler 创建教材处理器
func NewTextbookHandler(textbooks *appRAG.TextbookService, scheduler *appRAG.IngestScheduler) *TextbookHandler {
	return &TextbookHandler{
		catalog: textbooks,
		runner:  scheduler,
		logger:  log.NewModuleLogger("http", "textbook"),
	}
}

// Upload 上传 PDF
// POST /api/uploads (multipart 字段 file)
func (h *TextbookHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "invalid request: file is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		response.InternalError(c, "File saving failed.", err)
		return
	}
	defer file.Close()

	result, err := h.catalog.Upload(c.Request.Context(), header.Filename, file)
	switch {
	case errors.Is(err, appRAG.ErrEmptyUpload):
		response.BadRequest(c, "uploaded file is empty")
		return
	case errors.Is(err, appRAG.ErrUploadTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, "uploaded file is too large")
		return
	case err != nil:
		h.logger.Error("Upload failed", "filename", header.Filename, "error", err)
		response.InternalError(c, "File saving failed.", err)
		return
	}

	response.Success(c, result)
}

// Embed 同步摄取一本教材
// POST /api/embed/:pdf_id
func (h *TextbookHandler) Embed(c *gin.Context) {
	id := c.Param("pdf_id")
	ctx := log.WithDocumentID(c.Request.Context(), id)

	result, err := h.runner.Run(ctx, id)
	if err != nil {
		h.writeEmbedError(c, id, err)
		return
	}
	response.Success(c, result)
}

func (h *TextbookHandler) writeEmbedError(c *gin.Context, id string, err error) {
	var mismatch *domainRAG.EmbeddingMismatchError
	var extraction *domainRAG.ExtractionError

	switch {
	case errors.Is(err, appRAG.ErrFileNotFound):
		response.NotFound(c, "PDF file not found.")
	case errors.As(err, &extraction):
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeBadRequest,
			"No text chunks extracted from PDF.", extraction.Error())
	case errors.As(err, &mismatch):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError,
			fmt.Sprintf("Embedding failure: expected %d vectors, got %d.", mismatch.Expected, mismatch.Got))
	default:
		h.logger.Error("Embedding failed", "document_id", id, "error", err)
		response.InternalError(c, "Embedding failed: "+err.Error(), err)
	}
}

// List 列出已上传的教材
// GET /api/textbooks
func (h *TextbookHandler) List(c *gin.Context) {
	books, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to read textbook catalog", err)
		return
	}
	if books == nil {
		books = []*appRAG.TextbookView{}
	}
	response.Success(c, books)
}
