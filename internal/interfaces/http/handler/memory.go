package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/interfaces/http/response"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// memoryStore 会话记忆的查询与维护
type memoryStore interface {
	Stats(ctx context.Context, sessionID string) (*domainRAG.MemoryStats, error)
	Clear(ctx context.Context, sessionID string) bool
	SearchByText(ctx context.Context, sessionID, text string, k int) ([]domainRAG.ConversationTurn, error)
	ListSessions(ctx context.Context) ([]string, error)
}

// MemoryHandler 会话记忆接口
type MemoryHandler struct {
	memory memoryStore
}

// NewMemoryHandler 创建会话记忆处理器
func NewMemoryHandler(memory *appRAG.ConversationMemory) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

// Stats 会话记忆统计
// GET /api/memory/:session/stats
func (h *MemoryHandler) Stats(c *gin.Context) {
	stats, err := h.memory.Stats(c.Request.Context(), c.Param("session"))
	if err != nil {
		response.InternalError(c, "Failed to read memory stats", err)
		return
	}
	response.Success(c, stats)
}

// Clear 清空会话记忆
// DELETE /api/memory/:session
func (h *MemoryHandler) Clear(c *gin.Context) {
	session := c.Param("session")
	if !h.memory.Clear(c.Request.Context(), session) {
		response.NotFound(c, "session memory not found: "+session)
		return
	}
	response.Success(c, gin.H{"session_id": session, "cleared": true})
}

// Search 按文本检索会话记忆
// GET /api/memory/:session/search?q=&k=
func (h *MemoryHandler) Search(c *gin.Context) {
	text := c.Query("q")
	if text == "" {
		response.BadRequest(c, "invalid request: q is required")
		return
	}

	k := defaultSearchLimit
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid request: k must be a positive integer")
			return
		}
		k = min(n, maxSearchLimit)
	}

	turns, err := h.memory.SearchByText(c.Request.Context(), c.Param("session"), text, k)
	if err != nil {
		response.InternalError(c, "Failed to search memory", err)
		return
	}
	if turns == nil {
		turns = []domainRAG.ConversationTurn{}
	}
	response.Success(c, turns)
}

// Sessions 列出有记忆的会话
// GET /api/memory/sessions
func (h *MemoryHandler) Sessions(c *gin.Context) {
	sessions, err := h.memory.ListSessions(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []string{}
	}
	response.Success(c, sessions)
}
