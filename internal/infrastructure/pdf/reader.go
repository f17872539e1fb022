// Package pdf 读取 PDF 的逐页纯文本与文档属性
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// Reader PDF 文本读取器
type Reader struct {
	logger *slog.Logger
}

// NewReader 创建 PDF 读取器
func NewReader() *Reader {
	return &Reader{
		logger: log.NewModuleLogger("pdf", "reader"),
	}
}

// Parse 读取文件，返回逐页文本及 Title/Author
func (r *Reader) Parse(ctx context.Context, path string) (doc *rag.SourceDocument, err error) {
	// 第三方解析器遇到损坏文件可能 panic
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("PDF parser panicked", "path", path, "panic", rec)
			doc = nil
			err = fmt.Errorf("failed to parse pdf %s: %v", path, rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	doc = &rag.SourceDocument{
		Pages: make([]string, 0, numPages),
	}

	info := reader.Trailer().Key("Info")
	doc.Title = strings.TrimSpace(info.Key("Title").Text())
	doc.Author = strings.TrimSpace(info.Key("Author").Text())

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}
		doc.Pages = append(doc.Pages, r.pageText(page, i))
	}

	r.logger.Debug("PDF parsed",
		"path", path,
		"pages", numPages,
		"title", doc.Title,
	)

	return doc, nil
}

// PageCount 只读取页数
func (r *Reader) PageCount(path string) (count int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			count = 0
			err = fmt.Errorf("failed to read pdf %s: %v", path, rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	return reader.NumPage(), nil
}

// pageText 按行提取页面文本，行之间用换行分隔
func (r *Reader) pageText(page pdf.Page, pageNo int) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		r.logger.Debug("Row extraction failed, falling back to plain text",
			"page", pageNo,
			"error", err,
		)
		text, err := page.GetPlainText(nil)
		if err != nil {
			r.logger.Warn("Failed to extract page text", "page", pageNo, "error", err)
			return ""
		}
		return text
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var line strings.Builder
		for _, word := range row.Content {
			line.WriteString(word.S)
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
