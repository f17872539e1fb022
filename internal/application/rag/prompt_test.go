package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// TestListInstruction 测试列表意图关键词
func TestListInstruction(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"List the phases of mitosis", true},
		{"Give me BULLET points", true},
		{"enumerate the steps", true},
		{"What are the functions of the liver?", true},
		{"Explain photosynthesis", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ListInstruction(tt.query)
			if tt.want {
				assert.Equal(t, "Format your answer as a bulleted list.\n", got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

// TestGroundedPrompt 测试提示词各部分的顺序
func TestGroundedPrompt(t *testing.T) {
	hits := []domainRAG.Hit{
		{Text: "Chunk one.", Metadata: map[string]any{
			domainRAG.MetaTitle:    "Biology",
			domainRAG.MetaChapters: `[{"title":"Chapter 1 Cells","page":1}]`,
		}},
		{Text: "Chunk two."},
	}

	prompt := GroundedPrompt(domainRAG.RoleDefault, "What are the parts?", ListInstruction("What are the parts?"), hits)

	order := []string{
		"You are a highly knowledgeable AI assistant",
		"Answer the question using the textbook context when available.",
		"Title: Biology",
		"- Chapter 1 Cells (page 1)",
		"Textbook content:",
		"Chunk one.\n\nChunk two.",
		"Question: What are the parts?",
		"Format your answer as a bulleted list.",
		"If the textbook doesn't contain the answer",
	}
	last := -1
	for _, part := range order {
		idx := strings.Index(prompt, part)
		assert.Greater(t, idx, last, "part out of order: %q", part)
		last = idx
	}
}

// TestTOCNote 测试目录说明渲染
func TestTOCNote(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{"无元数据", nil, ""},
		{"只有标题", map[string]any{domainRAG.MetaTitle: "Physics"}, "Title: Physics\n"},
		{
			"标题与章节",
			map[string]any{
				domainRAG.MetaTitle:    "Physics",
				domainRAG.MetaChapters: `[{"title":"1.1 Motion","page":2}]`,
			},
			"Title: Physics\nChapters:\n- 1.1 Motion (page 2)\n\n",
		},
		{"章节 JSON 损坏时忽略", map[string]any{domainRAG.MetaChapters: "not json"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TOCNote(tt.meta))
		})
	}
}

// TestCitations 测试引用提取
func TestCitations(t *testing.T) {
	hits := []domainRAG.Hit{
		{Metadata: map[string]any{domainRAG.MetaPage: 3}},
		{Metadata: map[string]any{"other": 1}},
		{Metadata: map[string]any{domainRAG.MetaPage: float64(7)}},
		{},
	}
	assert.Equal(t, []string{"page 3", "page 7"}, Citations(hits))
	assert.Equal(t, []string{}, Citations(nil))
}
