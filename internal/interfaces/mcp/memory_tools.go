package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultConversationLimit = 5
	maxConversationLimit     = 20
	maxTurnTextLen           = 300
)

// SearchConversationsInput 会话检索工具输入
type SearchConversationsInput struct {
	SessionID string `json:"session_id" jsonschema:"Conversation id (required)"`
	Query     string `json:"query" jsonschema:"Text to look for (required)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results, defaults to 5, max 20"`
}

// ConversationHit 检索到的单条记录
type ConversationHit struct {
	ConversationID string `json:"conversation_id" jsonschema:"Conversation id shared by a question and its answer"`
	Type           string `json:"type" jsonschema:"user_input or assistant_response"`
	Text           string `json:"text" jsonschema:"Stored text"`
	PairedText     string `json:"paired_text,omitempty" jsonschema:"Preview of the paired question or answer"`
	TimeAgo        string `json:"time_ago" jsonschema:"When this turn happened"`
}

// SearchConversationsOutput 会话检索工具输出
type SearchConversationsOutput struct {
	Results    []ConversationHit `json:"results" jsonschema:"Matching turns, newest first"`
	TotalCount int               `json:"total_count" jsonschema:"Number of results"`
}

func (s *MCPServer) searchConversationsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchConversationsInput,
) (*mcp.CallToolResult, SearchConversationsOutput, error) {
	output := SearchConversationsOutput{Results: []ConversationHit{}}

	if input.SessionID == "" {
		return nil, output, fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}

	turns, err := s.memory.SearchByText(ctx, input.SessionID, input.Query, limit)
	if err != nil {
		return nil, output, fmt.Errorf("search failed: %w", err)
	}

	now := time.Now()
	for _, t := range turns {
		output.Results = append(output.Results, ConversationHit{
			ConversationID: t.ConversationID,
			Type:           string(t.Type),
			Text:           truncateText(t.Text, maxTurnTextLen),
			PairedText:     t.PairedText,
			TimeAgo:        formatTimeAgo(t.Timestamp, now),
		})
	}
	output.TotalCount = len(output.Results)
	return nil, output, nil
}

// ConversationStatsInput 会话统计工具输入
type ConversationStatsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation id; omit to list sessions"`
}

// ConversationStatsOutput 会话统计工具输出
type ConversationStatsOutput struct {
	SessionID          string         `json:"session_id,omitempty" jsonschema:"Conversation id"`
	TotalConversations int            `json:"total_conversations" jsonschema:"Number of question and answer pairs"`
	TotalEntries       int            `json:"total_entries" jsonschema:"Number of stored turns"`
	ModelUsage         map[string]int `json:"model_usage,omitempty" jsonschema:"Stored turns per model"`
	Sessions           []string       `json:"sessions,omitempty" jsonschema:"Sessions with memory, when session_id is omitted"`
}

func (s *MCPServer) conversationStatsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ConversationStatsInput,
) (*mcp.CallToolResult, ConversationStatsOutput, error) {
	if input.SessionID == "" {
		sessions, err := s.memory.ListSessions(ctx)
		if err != nil {
			return nil, ConversationStatsOutput{}, fmt.Errorf("failed to list sessions: %w", err)
		}
		if sessions == nil {
			sessions = []string{}
		}
		return nil, ConversationStatsOutput{Sessions: sessions}, nil
	}

	stats, err := s.memory.Stats(ctx, input.SessionID)
	if err != nil {
		return nil, ConversationStatsOutput{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return nil, ConversationStatsOutput{
		SessionID:          stats.SessionID,
		TotalConversations: stats.TotalConversations,
		TotalEntries:       stats.TotalEntries,
		ModelUsage:         stats.ModelUsage,
	}, nil
}

// truncateText 截断到 maxLen 字节以内，尽量停在空格处
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]
	if i := strings.LastIndexByte(truncated, ' '); i >= cut-20 && i > 0 {
		truncated = truncated[:i]
	}
	return truncated + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatTimeAgo 格式化为相对时间
func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := now.Sub(t)
	switch {
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins <= 1 {
			return "just now"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
