package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

const (
	// pairedPreviewLen 对端文本预览长度
	pairedPreviewLen = 200
	// contextTurns 构建上下文时检索的历史条数
	contextTurns = 3
	// DefaultMaxContextChars 上下文字符上限
	DefaultMaxContextChars = 1500
)

// ConversationMemory 基于向量索引的会话记忆
// 每个会话独占 "conversations_{session_id}" 命名空间
type ConversationMemory struct {
	index  domainRAG.VectorIndex
	now    func() time.Time
	logger *slog.Logger
}

// NewConversationMemory 创建会话记忆
func NewConversationMemory(index domainRAG.VectorIndex) *ConversationMemory {
	return &ConversationMemory{
		index:  index,
		now:    time.Now,
		logger: log.NewModuleLogger("rag", "memory"),
	}
}

// TurnInput 一次问答的写入参数
type TurnInput struct {
	SessionID       string
	UserText        string
	AssistantText   string
	UserVector      []float32
	AssistantVector []float32
	Model           string
	Tags            []string
}

// RecordTurn 写入一对问答，返回会话 ID
func (m *ConversationMemory) RecordTurn(ctx context.Context, in TurnInput) (string, error) {
	if in.SessionID == "" {
		return "", errors.New("session id is required")
	}

	conversationID := uuid.New().String()
	timestamp := m.now().Format(time.RFC3339Nano)

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}

	base := func(turnType domainRAG.TurnType) map[string]any {
		return map[string]any{
			domainRAG.MetaType:           string(turnType),
			domainRAG.MetaConversationID: conversationID,
			domainRAG.MetaTimestamp:      timestamp,
			domainRAG.MetaModelUsed:      in.Model,
			domainRAG.MetaTags:           string(tagsJSON),
		}
	}

	userMeta := base(domainRAG.TurnUserInput)
	userMeta[domainRAG.MetaPairedResponse] = Preview(in.AssistantText)

	responseMeta := base(domainRAG.TurnAssistantResponse)
	responseMeta[domainRAG.MetaPairedInput] = Preview(in.UserText)

	records := []domainRAG.Record{
		{ID: conversationID + "_user", Text: in.UserText, Vector: in.UserVector, Metadata: userMeta},
		{ID: conversationID + "_response", Text: in.AssistantText, Vector: in.AssistantVector, Metadata: responseMeta},
	}

	if err := m.index.Save(ctx, domainRAG.ConversationNamespace(in.SessionID), records); err != nil {
		return "", fmt.Errorf("failed to save conversation: %w", err)
	}

	m.logger.Debug("Conversation saved",
		"session_id", in.SessionID,
		"conversation_id", conversationID,
	)
	return conversationID, nil
}

// RetrieveSimilar 查询 2k 个近邻，按类型过滤、按会话 ID 去重后返回至多 k 条
func (m *ConversationMemory) RetrieveSimilar(ctx context.Context, sessionID string, queryVec []float32, k int, searchType domainRAG.SearchType) ([]domainRAG.SimilarConversation, error) {
	out := make([]domainRAG.SimilarConversation, 0)
	if k <= 0 {
		return out, nil
	}

	// 只读路径：会话还没有记录时不触发 Query 的惰性创建
	namespace := domainRAG.ConversationNamespace(sessionID)
	exists, err := m.index.HasNamespace(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to check conversations: %w", err)
	}
	if !exists {
		return out, nil
	}

	hits, err := m.index.Query(ctx, namespace, queryVec, k*2)
	if err != nil {
		if errors.Is(err, domainRAG.ErrNamespaceNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	seen := make(map[string]bool)
	for _, hit := range hits {
		turn := turnFromHit(sessionID, hit)
		if !searchType.Accepts(turn.Type) {
			continue
		}
		if seen[turn.ConversationID] {
			continue
		}
		seen[turn.ConversationID] = true

		out = append(out, domainRAG.SimilarConversation{
			ConversationTurn: turn,
			Similarity:       1 - hit.Distance,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// BuildContext 渲染相似历史为上下文前缀，无历史时返回空串
func (m *ConversationMemory) BuildContext(ctx context.Context, sessionID string, queryVec []float32, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	similar, err := m.RetrieveSimilar(ctx, sessionID, queryVec, contextTurns, domainRAG.SearchBoth)
	if err != nil {
		return "", err
	}
	return RenderContext(similar, maxChars), nil
}

// EnhancePrompt 在提示词前拼接会话上下文，maxChars 不大于 0 时取默认上限
func (m *ConversationMemory) EnhancePrompt(ctx context.Context, sessionID, userInput string, queryVec []float32, useMemory bool, maxChars int) (string, error) {
	if !useMemory {
		return userInput, nil
	}
	memoryContext, err := m.BuildContext(ctx, sessionID, queryVec, maxChars)
	if err != nil {
		return userInput, err
	}
	return memoryContext + userInput, nil
}

// SearchByText 大小写不敏感的子串匹配，按时间倒序返回至多 k 条
func (m *ConversationMemory) SearchByText(ctx context.Context, sessionID, text string, k int) ([]domainRAG.ConversationTurn, error) {
	turns, err := m.allTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(text)
	matched := make([]domainRAG.ConversationTurn, 0)
	for _, t := range turns {
		if strings.Contains(strings.ToLower(t.Text), needle) {
			matched = append(matched, t)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if k > 0 && len(matched) > k {
		matched = matched[:k]
	}
	return matched, nil
}

// Stats 会话统计，会话不存在时各项为零
func (m *ConversationMemory) Stats(ctx context.Context, sessionID string) (*domainRAG.MemoryStats, error) {
	stats := &domainRAG.MemoryStats{
		SessionID:  sessionID,
		ModelUsage: make(map[string]int),
	}

	turns, err := m.allTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	conversations := make(map[string]bool)
	for _, t := range turns {
		conversations[t.ConversationID] = true
		model := t.ModelUsed
		if model == "" {
			model = "unknown"
		}
		stats.ModelUsage[model]++
	}
	stats.TotalConversations = len(conversations)
	stats.TotalEntries = len(turns)
	return stats, nil
}

// Clear 删除会话命名空间，删除失败（包括不存在）时返回 false
func (m *ConversationMemory) Clear(ctx context.Context, sessionID string) bool {
	if err := m.index.DeleteNamespace(ctx, domainRAG.ConversationNamespace(sessionID)); err != nil {
		m.logger.Warn("Failed to clear conversation history",
			"session_id", sessionID,
			"error", err,
		)
		return false
	}
	m.logger.Info("Conversation history cleared", "session_id", sessionID)
	return true
}

// ListSessions 列出有会话记忆的会话 ID
func (m *ConversationMemory) ListSessions(ctx context.Context) ([]string, error) {
	namespaces, err := m.index.ListNamespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	sessions := make([]string, 0)
	for _, ns := range namespaces {
		if id, ok := strings.CutPrefix(ns, domainRAG.ConversationNamespacePrefix); ok {
			sessions = append(sessions, id)
		}
	}
	return sessions, nil
}

func (m *ConversationMemory) allTurns(ctx context.Context, sessionID string) ([]domainRAG.ConversationTurn, error) {
	hits, err := m.index.All(ctx, domainRAG.ConversationNamespace(sessionID))
	if err != nil {
		if errors.Is(err, domainRAG.ErrNamespaceNotFound) {
			return []domainRAG.ConversationTurn{}, nil
		}
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	turns := make([]domainRAG.ConversationTurn, 0, len(hits))
	for _, h := range hits {
		turns = append(turns, turnFromHit(sessionID, h))
	}
	return turns, nil
}

// RenderContext 拼接 "Past Question / Past Answer" 块，按字符数计算，超过 maxChars 前停止
func RenderContext(similar []domainRAG.SimilarConversation, maxChars int) string {
	var blocks strings.Builder
	length := 0

	for _, conv := range similar {
		question, answer := conv.Text, conv.PairedText
		if conv.Type == domainRAG.TurnAssistantResponse {
			question, answer = conv.PairedText, conv.Text
		}
		block := "Past Question: " + question + "\nPast Answer: " + answer + "\n---\n"

		size := utf8.RuneCountInString(block)
		if length+size > maxChars {
			break
		}
		blocks.WriteString(block)
		length += size
	}

	if length == 0 {
		return ""
	}
	return "Relevant conversation history:\n" + blocks.String() + "\nCurrent question:\n"
}

// Preview 截断到 200 个字符并追加省略号
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= pairedPreviewLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:pairedPreviewLen]) + "..."
}

// turnFromHit 将索引条目还原为会话条目
func turnFromHit(sessionID string, hit domainRAG.Hit) domainRAG.ConversationTurn {
	meta := hit.Metadata
	turn := domainRAG.ConversationTurn{
		SessionID:      sessionID,
		ConversationID: domainRAG.MetaString(meta, domainRAG.MetaConversationID),
		Type:           domainRAG.TurnType(domainRAG.MetaString(meta, domainRAG.MetaType)),
		Text:           hit.Text,
		ModelUsed:      domainRAG.MetaString(meta, domainRAG.MetaModelUsed),
		Tags:           []string{},
	}

	if ts, err := time.Parse(time.RFC3339Nano, domainRAG.MetaString(meta, domainRAG.MetaTimestamp)); err == nil {
		turn.Timestamp = ts
	}
	if raw := domainRAG.MetaString(meta, domainRAG.MetaTags); raw != "" {
		_ = json.Unmarshal([]byte(raw), &turn.Tags)
	}
	if turn.Type == domainRAG.TurnAssistantResponse {
		turn.PairedText = domainRAG.MetaString(meta, domainRAG.MetaPairedInput)
	} else {
		turn.PairedText = domainRAG.MetaString(meta, domainRAG.MetaPairedResponse)
	}
	return turn
}
