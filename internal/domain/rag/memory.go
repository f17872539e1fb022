package rag

import "time"

// TurnType 会话条目类型
type TurnType string

const (
	TurnUserInput         TurnType = "user_input"
	TurnAssistantResponse TurnType = "assistant_response"
)

// SearchType 相似会话检索范围
type SearchType string

const (
	SearchBoth         SearchType = "both"
	SearchUserOnly     SearchType = "user_only"
	SearchResponseOnly SearchType = "response_only"
)

// ParseSearchType 解析检索范围，未知值视为 both
func ParseSearchType(s string) SearchType {
	switch SearchType(s) {
	case SearchUserOnly, SearchResponseOnly:
		return SearchType(s)
	default:
		return SearchBoth
	}
}

// Accepts 判断条目类型是否在检索范围内
func (s SearchType) Accepts(t TurnType) bool {
	switch s {
	case SearchUserOnly:
		return t == TurnUserInput
	case SearchResponseOnly:
		return t == TurnAssistantResponse
	default:
		return true
	}
}

// ConversationTurn 一次问答写入的单条记录
type ConversationTurn struct {
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	Type           TurnType  `json:"type"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	ModelUsed      string    `json:"model_used"`
	Tags           []string  `json:"tags"`
	PairedText     string    `json:"paired_text"`
}

// SimilarConversation 相似历史会话
type SimilarConversation struct {
	ConversationTurn
	Similarity float64 `json:"similarity"`
}

// MemoryStats 会话记忆统计
type MemoryStats struct {
	SessionID          string         `json:"session_id"`
	TotalConversations int            `json:"total_conversations"`
	TotalEntries       int            `json:"total_entries"`
	ModelUsage         map[string]int `json:"model_usage"`
}
