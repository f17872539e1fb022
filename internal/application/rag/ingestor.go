package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/domain/textbook"
	"github.com/nymav/drax-tbs/internal/infrastructure/textproc"
)

// 标题行：
//   - "Chapter N[.M...] <title>"（大小写不敏感）
//   - "N.M <title>"
var (
	chapterHeadingPattern = regexp.MustCompile(`(?i)^(Chapter\s+\d+(?:\.\d+)*\b.*)`)
	sectionHeadingPattern = regexp.MustCompile(`^(\d+\.\d+\s+.+)`)
)

// IngestResult 摄取结果
type IngestResult struct {
	Chunks   []string
	Metadata domainRAG.DocumentMetadata
	Pages    int
}

// Ingestor 文档摄取器
// 标题检测基于原始逐行文本，切块基于规范化后的全文，两遍互相独立
type Ingestor struct {
	parser DocumentParser
	maxLen int
}

// NewIngestor 创建摄取器
func NewIngestor(parser DocumentParser, maxLen int) *Ingestor {
	if maxLen <= 0 {
		maxLen = textproc.DefaultMaxChunkLen
	}
	return &Ingestor{
		parser: parser,
		maxLen: maxLen,
	}
}

// IngestFile 解析文件并摄取
func (i *Ingestor) IngestFile(ctx context.Context, path string, defaults domainRAG.DocumentMetadata) (*IngestResult, error) {
	doc, err := i.parser.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return i.Ingest(doc, path, defaults)
}

// Ingest 对已解析文档切块并提取元数据，零块时返回 ExtractionError
func (i *Ingestor) Ingest(doc *domainRAG.SourceDocument, source string, defaults domainRAG.DocumentMetadata) (*IngestResult, error) {
	var full strings.Builder
	for _, page := range doc.Pages {
		full.WriteString(page)
		full.WriteString("\n")
	}

	chunks := textproc.ChunkText(textproc.Normalize(full.String()), i.maxLen)
	if len(chunks) == 0 {
		return nil, &domainRAG.ExtractionError{Source: source, Reason: "no text chunks extracted"}
	}

	meta := domainRAG.DocumentMetadata{
		Title:    firstNonEmpty(doc.Title, defaults.Title),
		Author:   firstNonEmpty(doc.Author, defaults.Author, textbook.DefaultAuthor),
		Chapters: DetectChapters(doc.Pages),
	}

	return &IngestResult{
		Chunks:   chunks,
		Metadata: meta,
		Pages:    len(doc.Pages),
	}, nil
}

// DetectChapters 按首次出现顺序返回去重后的标题及其所在页（从 1 开始）
func DetectChapters(pages []string) []domainRAG.Chapter {
	chapters := make([]domainRAG.Chapter, 0)
	seen := make(map[string]bool)

	for pageIdx, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			title := matchHeading(strings.TrimSpace(line))
			if title == "" || seen[title] {
				continue
			}
			seen[title] = true
			chapters = append(chapters, domainRAG.Chapter{Title: title, Page: pageIdx + 1})
		}
	}
	return chapters
}

func matchHeading(line string) string {
	if m := chapterHeadingPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := sectionHeadingPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
