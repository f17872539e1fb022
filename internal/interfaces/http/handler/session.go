package handler

import (
	"github.com/gin-gonic/gin"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/interfaces/http/response"
)

// SessionHandler 会话历史查询
type SessionHandler struct {
	history domainRAG.HistoryRepository
}

// NewSessionHandler 创建会话历史处理器
func NewSessionHandler(history domainRAG.HistoryRepository) *SessionHandler {
	return &SessionHandler{history: history}
}

// History 按插入顺序返回会话的 {role, query, answer}
// GET /api/sessions/:id
func (h *SessionHandler) History(c *gin.Context) {
	records, err := h.history.FindBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, "Failed to read session history", err)
		return
	}
	if records == nil {
		records = []*domainRAG.HistoryRecord{}
	}
	response.Success(c, records)
}
