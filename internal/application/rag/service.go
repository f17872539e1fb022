package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// DefaultTopK 每次检索的文档块数量
const DefaultTopK = 8

// ServiceConfig 问答服务配置
type ServiceConfig struct {
	TopK            int
	MemoryEnabled   bool
	MaxContextChars int
}

// Result 问答结果与终态
type Result struct {
	domainRAG.Answer
	Outcome domainRAG.Outcome `json:"-"`
}

// RAGService 问答编排
// 每次请求内依次调用向量化、检索、语言模型，请求之间不共享可变状态
type RAGService struct {
	embedder Embedder
	index    domainRAG.VectorIndex
	model    LanguageModel
	memory   *ConversationMemory
	history  domainRAG.HistoryRepository
	config   ServiceConfig
	logger   *slog.Logger
}

// NewRAGService 创建问答服务，memory 与 history 可为 nil
func NewRAGService(
	embedder Embedder,
	index domainRAG.VectorIndex,
	model LanguageModel,
	memory *ConversationMemory,
	history domainRAG.HistoryRepository,
	config ServiceConfig,
) *RAGService {
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.MaxContextChars <= 0 {
		config.MaxContextChars = DefaultMaxContextChars
	}
	return &RAGService{
		embedder: embedder,
		index:    index,
		model:    model,
		memory:   memory,
		history:  history,
		config:   config,
		logger:   log.NewModuleLogger("rag", "service"),
	}
}

// exchange 单次请求的中间状态
type exchange struct {
	question domainRAG.Question
	role     domainRAG.Role
	queryVec []float32
	plan     Plan
	prompt   string
}

// Ask 回答问题，任何检索或生成故障都转换为固定形状的回答
func (s *RAGService) Ask(ctx context.Context, q domainRAG.Question) *Result {
	ctx = s.withLogContext(ctx, q)
	ex := s.prepare(ctx, q)

	answer := ex.plan.Answer
	if ex.plan.NeedsModel() {
		answer = strings.TrimSpace(s.model.Complete(ctx, ex.prompt))
	}

	return s.finish(ctx, ex, answer)
}

// AskStream 流式回答，onDelta 依次收到文本片段
// 尚未输出任何片段时流式失败会退回到一次性补全
func (s *RAGService) AskStream(ctx context.Context, q domainRAG.Question, onDelta func(string) error) (*Result, error) {
	ctx = s.withLogContext(ctx, q)
	ex := s.prepare(ctx, q)

	if !ex.plan.NeedsModel() {
		if err := onDelta(ex.plan.Answer); err != nil {
			return nil, err
		}
		return s.finish(ctx, ex, ex.plan.Answer), nil
	}

	emitted := false
	text, err := s.model.Stream(ctx, ex.prompt, func(delta string) error {
		emitted = true
		return onDelta(delta)
	})
	if err == nil && !emitted && strings.TrimSpace(text) == "" {
		err = errors.New("stream produced no output")
	}
	if err != nil {
		if emitted || ctx.Err() != nil {
			return nil, fmt.Errorf("stream interrupted: %w", err)
		}
		log.FromContext(ctx, s.logger).Warn("Stream failed, falling back to completion", "error", err)
		text = s.model.Complete(ctx, ex.prompt)
		if err := onDelta(text); err != nil {
			return nil, err
		}
	}

	return s.finish(ctx, ex, strings.TrimSpace(text)), nil
}

// prepare 检索并得到决策与最终提示词
func (s *RAGService) prepare(ctx context.Context, q domainRAG.Question) (ex *exchange) {
	ex = &exchange{
		question: q,
		role:     domainRAG.NormalizeRole(q.Role),
	}
	state := RequestState{
		Role:        ex.role,
		Query:       q.Query,
		HasDocument: q.DocumentID != "",
	}

	// 检索阶段的 panic 同样按检索失败处理
	defer func() {
		if r := recover(); r != nil {
			log.FromContext(ctx, s.logger).Error("Retrieval panicked", "panic", r)
			state.Hits = nil
			state.RetrievalErr = fmt.Errorf("retrieval panicked: %v", r)
			ex.plan = Decide(state)
			ex.prompt = ex.plan.Prompt
		}
	}()

	if state.HasDocument {
		ex.queryVec, state.Hits, state.RetrievalErr = s.retrieve(ctx, q)
		if state.RetrievalErr != nil {
			log.FromContext(ctx, s.logger).Error("Failed to retrieve textbook content", "error", state.RetrievalErr)
		}
	}

	ex.plan = Decide(state)
	ex.prompt = ex.plan.Prompt
	if ex.plan.NeedsModel() {
		ex.prompt = s.withMemory(ctx, ex)
	}

	log.FromContext(ctx, s.logger).Debug("Request planned",
		"role", ex.role,
		"outcome", ex.plan.Outcome,
		"hits", len(state.Hits),
	)
	return ex
}

// retrieve 向量化问题并检索目标文档
func (s *RAGService) retrieve(ctx context.Context, q domainRAG.Question) ([]float32, []domainRAG.Hit, error) {
	vecs, err := s.embedder.Embed(ctx, []string{q.Query})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, nil, &domainRAG.EmbeddingMismatchError{Expected: 1, Got: len(vecs)}
	}

	hits, err := s.index.Query(ctx, q.DocumentID, vecs[0], s.config.TopK)
	if err != nil {
		if errors.Is(err, domainRAG.ErrNamespaceNotFound) {
			return vecs[0], nil, nil
		}
		return vecs[0], nil, fmt.Errorf("failed to query index: %w", err)
	}
	return vecs[0], hits, nil
}

// withMemory 有会话记忆时在提示词前拼接历史上下文
func (s *RAGService) withMemory(ctx context.Context, ex *exchange) string {
	if !s.memoryActive(ex.question) {
		return ex.plan.Prompt
	}

	if ex.queryVec == nil {
		vecs, err := s.embedder.Embed(ctx, []string{ex.question.Query})
		if err != nil || len(vecs) != 1 {
			log.FromContext(ctx, s.logger).Warn("Failed to embed question for memory", "error", err)
			return ex.plan.Prompt
		}
		ex.queryVec = vecs[0]
	}

	prompt, err := s.memory.EnhancePrompt(ctx, ex.question.SessionID, ex.plan.Prompt, ex.queryVec, true, s.config.MaxContextChars)
	if err != nil {
		log.FromContext(ctx, s.logger).Warn("Failed to build memory context", "error", err)
		return ex.plan.Prompt
	}
	return prompt
}

// finish 组装回答并写入会话记忆与历史
func (s *RAGService) finish(ctx context.Context, ex *exchange, answer string) *Result {
	result := &Result{
		Answer: domainRAG.Answer{
			Answer:    answer,
			Citations: ex.plan.Citations,
		},
		Outcome: ex.plan.Outcome,
	}

	if ex.question.SessionID == "" {
		return result
	}

	// 只有模型生成的回答进入会话记忆，固定提示语不作为历史上下文
	if ex.plan.NeedsModel() && s.memoryActive(ex.question) && ex.queryVec != nil {
		s.remember(ctx, ex, answer)
	}

	if s.history != nil {
		record := &domainRAG.HistoryRecord{
			SessionID: ex.question.SessionID,
			Role:      string(ex.role),
			Query:     ex.question.Query,
			Answer:    answer,
			CreatedAt: time.Now().UnixMilli(),
		}
		if err := s.history.Append(ctx, record); err != nil {
			log.FromContext(ctx, s.logger).Warn("Failed to append session history", "error", err)
		}
	}
	return result
}

func (s *RAGService) remember(ctx context.Context, ex *exchange, answer string) {
	vecs, err := s.embedder.Embed(ctx, []string{answer})
	if err != nil || len(vecs) != 1 {
		log.FromContext(ctx, s.logger).Warn("Failed to embed answer for memory", "error", err)
		return
	}

	_, err = s.memory.RecordTurn(ctx, TurnInput{
		SessionID:       ex.question.SessionID,
		UserText:        ex.question.Query,
		AssistantText:   answer,
		UserVector:      ex.queryVec,
		AssistantVector: vecs[0],
		Model:           s.model.CurrentModel(),
		Tags:            []string{string(ex.role), string(ex.plan.Outcome)},
	})
	if err != nil {
		log.FromContext(ctx, s.logger).Warn("Failed to record conversation", "error", err)
	}
}

func (s *RAGService) memoryActive(q domainRAG.Question) bool {
	return s.config.MemoryEnabled && s.memory != nil && q.SessionID != ""
}

func (s *RAGService) withLogContext(ctx context.Context, q domainRAG.Question) context.Context {
	if q.SessionID != "" {
		ctx = log.WithSessionID(ctx, q.SessionID)
	}
	if q.DocumentID != "" {
		ctx = log.WithDocumentID(ctx, q.DocumentID)
	}
	return ctx
}
