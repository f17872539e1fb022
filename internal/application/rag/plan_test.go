package rag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

func pageHit(text string, page int) domainRAG.Hit {
	return domainRAG.Hit{Text: text, Metadata: map[string]any{domainRAG.MetaPage: page}}
}

// TestDecide 测试四种终态与两种角色的组合
func TestDecide(t *testing.T) {
	hits := []domainRAG.Hit{pageHit("Cells divide.", 3), pageHit("Mitosis.", 3), pageHit("Meiosis.", 7)}

	tests := []struct {
		name          string
		state         RequestState
		wantOutcome   domainRAG.Outcome
		wantAnswer    string
		wantModel     bool
		wantCitations []string
	}{
		{
			name:          "strict 无文档返回固定提示",
			state:         RequestState{Role: domainRAG.RoleStrict, Query: "What is photosynthesis?"},
			wantOutcome:   domainRAG.OutcomeNoDocument,
			wantAnswer:    "No textbook is loaded. Please upload a textbook to get answers from it.",
			wantCitations: []string{},
		},
		{
			name:          "default 无文档走通用知识",
			state:         RequestState{Role: domainRAG.RoleDefault, Query: "What is photosynthesis?"},
			wantOutcome:   domainRAG.OutcomeNoDocument,
			wantModel:     true,
			wantCitations: []string{},
		},
		{
			name:          "strict 检索为空",
			state:         RequestState{Role: domainRAG.RoleStrict, Query: "q", HasDocument: true},
			wantOutcome:   domainRAG.OutcomeRetrievedEmpty,
			wantAnswer:    NotAvailableMessage,
			wantCitations: []string{},
		},
		{
			name: "strict 命中全是空白视为检索为空",
			state: RequestState{Role: domainRAG.RoleStrict, Query: "q", HasDocument: true,
				Hits: []domainRAG.Hit{pageHit("   ", 1)}},
			wantOutcome:   domainRAG.OutcomeRetrievedEmpty,
			wantAnswer:    NotAvailableMessage,
			wantCitations: []string{},
		},
		{
			name:          "default 检索为空走通用知识",
			state:         RequestState{Role: domainRAG.RoleDefault, Query: "q", HasDocument: true},
			wantOutcome:   domainRAG.OutcomeRetrievedEmpty,
			wantModel:     true,
			wantCitations: []string{},
		},
		{
			name: "strict 检索失败",
			state: RequestState{Role: domainRAG.RoleStrict, Query: "q", HasDocument: true,
				RetrievalErr: errors.New("boom")},
			wantOutcome:   domainRAG.OutcomeError,
			wantAnswer:    SearchErrorMessage,
			wantCitations: []string{},
		},
		{
			name: "default 检索失败走通用知识",
			state: RequestState{Role: domainRAG.RoleDefault, Query: "q", HasDocument: true,
				RetrievalErr: errors.New("boom")},
			wantOutcome:   domainRAG.OutcomeError,
			wantModel:     true,
			wantCitations: []string{},
		},
		{
			name:          "命中时引用保持顺序且不去重",
			state:         RequestState{Role: domainRAG.RoleStrict, Query: "q", HasDocument: true, Hits: hits},
			wantOutcome:   domainRAG.OutcomeRetrievedNonEmpty,
			wantModel:     true,
			wantCitations: []string{"page 3", "page 3", "page 7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Decide(tt.state)
			assert.Equal(t, tt.wantOutcome, plan.Outcome)
			assert.Equal(t, tt.wantModel, plan.NeedsModel())
			assert.Equal(t, tt.wantCitations, plan.Citations)
			if !tt.wantModel {
				assert.Equal(t, tt.wantAnswer, plan.Answer)
			}
		})
	}
}

// TestDecide_Prompts 测试各终态的提示词内容
func TestDecide_Prompts(t *testing.T) {
	t.Run("检索为空的提示词包含说明", func(t *testing.T) {
		plan := Decide(RequestState{Role: domainRAG.RoleDefault, Query: "What is ATP?", HasDocument: true})
		assert.Contains(t, plan.Prompt, "The textbook doesn't contain information about this topic")
		assert.Contains(t, plan.Prompt, "User: What is ATP?\nAI:")
	})

	t.Run("检索失败的提示词不含教材内容", func(t *testing.T) {
		plan := Decide(RequestState{Role: domainRAG.RoleDefault, Query: "q", HasDocument: true,
			Hits: []domainRAG.Hit{pageHit("secret", 1)}, RetrievalErr: errors.New("x")})
		assert.NotContains(t, plan.Prompt, "secret")
		assert.Equal(t, GeneralPrompt("q", ""), plan.Prompt)
	})

	t.Run("列表意图追加格式指令", func(t *testing.T) {
		plan := Decide(RequestState{Role: domainRAG.RoleDefault, Query: "List the organelles"})
		assert.Contains(t, plan.Prompt, "Format your answer as a bulleted list.")
	})

	t.Run("命中时使用对应角色的结尾指令", func(t *testing.T) {
		state := RequestState{Role: domainRAG.RoleStrict, Query: "q", HasDocument: true,
			Hits: []domainRAG.Hit{pageHit("content", 1)}}
		assert.Contains(t, Decide(state).Prompt, "Answer based ONLY on the textbook content above:")

		state.Role = domainRAG.RoleDefault
		assert.Contains(t, Decide(state).Prompt, "clearly indicate the source:")
	})
}
