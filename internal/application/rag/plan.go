package rag

import (
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// RequestState 一次提问在决策点上的全部输入
type RequestState struct {
	Role        domainRAG.Role
	Query       string
	HasDocument bool
	Hits        []domainRAG.Hit
	// RetrievalErr 向量化或检索失败
	RetrievalErr error
}

// Plan 决策结果
// Prompt 为空时 Answer 即最终回答，否则需要调用语言模型
type Plan struct {
	Outcome   domainRAG.Outcome
	Prompt    string
	Answer    string
	Citations []string
}

// NeedsModel 是否需要调用语言模型
func (p Plan) NeedsModel() bool {
	return p.Prompt != ""
}

// Decide 纯函数：由请求状态得到终态与提示词
func Decide(s RequestState) Plan {
	listInstr := ListInstruction(s.Query)
	strict := s.Role == domainRAG.RoleStrict

	switch {
	case !s.HasDocument:
		if strict {
			return fixed(domainRAG.OutcomeNoDocument, NoTextbookMessage)
		}
		return prompted(domainRAG.OutcomeNoDocument, GeneralPrompt(s.Query, listInstr), nil)

	case s.RetrievalErr != nil:
		if strict {
			return fixed(domainRAG.OutcomeError, SearchErrorMessage)
		}
		return prompted(domainRAG.OutcomeError, GeneralPrompt(s.Query, listInstr), nil)

	case !HasContent(s.Hits):
		if strict {
			return fixed(domainRAG.OutcomeRetrievedEmpty, NotAvailableMessage)
		}
		return prompted(domainRAG.OutcomeRetrievedEmpty, EmptyRetrievalPrompt(s.Query, listInstr), nil)

	default:
		return prompted(
			domainRAG.OutcomeRetrievedNonEmpty,
			GroundedPrompt(s.Role, s.Query, listInstr, s.Hits),
			Citations(s.Hits),
		)
	}
}

func fixed(outcome domainRAG.Outcome, answer string) Plan {
	return Plan{Outcome: outcome, Answer: answer, Citations: []string{}}
}

func prompted(outcome domainRAG.Outcome, prompt string, citations []string) Plan {
	if citations == nil {
		citations = []string{}
	}
	return Plan{Outcome: outcome, Prompt: prompt, Citations: citations}
}
