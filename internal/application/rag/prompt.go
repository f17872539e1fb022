package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// 全局系统指令
const SystemInstruction = "You are a highly knowledgeable AI assistant trained on academic textbooks.\n" +
	"If textbook context is provided, answer strictly from it. " +
	"Otherwise you may answer any general question helpfully.\n"

// 固定回答
const (
	NoTextbookMessage   = "No textbook is loaded. Please upload a textbook to get answers from it."
	NotAvailableMessage = "This information is not available in the provided textbook content."
	SearchErrorMessage  = "An error occurred while searching the textbook. Please try again."
)

const (
	listInstruction   = "Format your answer as a bulleted list.\n"
	emptyDisclosure   = "The textbook doesn't contain information about this topic, so I'll provide general knowledge:\n\n"
	textbookHeader    = "Textbook content:"
	strictClosing     = "Answer based ONLY on the textbook content above:"
	defaultClosing    = "Answer using the textbook content above. If the textbook doesn't contain the answer, you may provide general knowledge but clearly indicate the source:"
	strictRolePrompt  = "Answer ONLY using the textbook context provided. If the answer is not in the textbook context, say 'This information is not available in the provided textbook content.'"
	defaultRolePrompt = "Answer the question using the textbook context when available. If the textbook context doesn't contain the answer, you may provide general knowledge to help the user, but clearly indicate when you're drawing from general knowledge vs. the textbook."
)

// listKeywords 触发列表格式的关键词
var listKeywords = []string{"list", "bullet", "enumerate", "what are the"}

// RolePrompt 角色指令
func RolePrompt(role domainRAG.Role) string {
	if role == domainRAG.RoleStrict {
		return strictRolePrompt
	}
	return defaultRolePrompt
}

// ListInstruction 问题带列表意图时返回格式指令
func ListInstruction(query string) string {
	q := strings.ToLower(query)
	for _, kw := range listKeywords {
		if strings.Contains(q, kw) {
			return listInstruction
		}
	}
	return ""
}

// GeneralPrompt 不使用教材内容的通用知识提示词
func GeneralPrompt(query, listInstr string) string {
	return SystemInstruction + listInstr + "User: " + query + "\nAI:"
}

// EmptyRetrievalPrompt 检索为空时的通用知识提示词，显式声明教材无相关内容
func EmptyRetrievalPrompt(query, listInstr string) string {
	return SystemInstruction + listInstr + emptyDisclosure + "User: " + query + "\nAI:"
}

// GroundedPrompt 基于检索结果的提示词
func GroundedPrompt(role domainRAG.Role, query, listInstr string, hits []domainRAG.Hit) string {
	var firstMeta map[string]any
	if len(hits) > 0 {
		firstMeta = hits[0].Metadata
	}

	docs := make([]string, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.Text)
	}

	closing := defaultClosing
	if role == domainRAG.RoleStrict {
		closing = strictClosing
	}

	parts := []string{
		SystemInstruction,
		RolePrompt(role),
		TOCNote(firstMeta),
		textbookHeader,
		strings.Join(docs, "\n\n"),
		"Question: " + query,
	}
	if listInstr != "" {
		parts = append(parts, listInstr)
	}
	parts = append(parts, closing)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// TOCNote 渲染首个命中的标题与章节目录
func TOCNote(meta map[string]any) string {
	if meta == nil {
		return ""
	}

	var b strings.Builder
	if title := domainRAG.MetaString(meta, domainRAG.MetaTitle); title != "" {
		b.WriteString("Title: " + title + "\n")
	}

	chapters := chaptersFromMeta(meta)
	if len(chapters) > 0 {
		b.WriteString("Chapters:\n")
		for _, ch := range chapters {
			fmt.Fprintf(&b, "- %s (page %d)\n", ch.Title, ch.Page)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// chaptersFromMeta 章节以 JSON 字符串存放在块元数据中
func chaptersFromMeta(meta map[string]any) []domainRAG.Chapter {
	raw := domainRAG.MetaString(meta, domainRAG.MetaChapters)
	if raw == "" {
		return nil
	}
	var chapters []domainRAG.Chapter
	if err := json.Unmarshal([]byte(raw), &chapters); err != nil {
		return nil
	}
	return chapters
}

// Citations 每个带 page 的命中贡献一条 "page {n}"，保持检索顺序且不去重
func Citations(hits []domainRAG.Hit) []string {
	citations := make([]string, 0, len(hits))
	for _, h := range hits {
		if page, ok := domainRAG.MetaInt(h.Metadata, domainRAG.MetaPage); ok {
			citations = append(citations, fmt.Sprintf("page %d", page))
		}
	}
	return citations
}

// HasContent 至少一个命中的文本非空白
func HasContent(hits []domainRAG.Hit) bool {
	for _, h := range hits {
		if strings.TrimSpace(h.Text) != "" {
			return true
		}
	}
	return false
}
