package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/infrastructure/websocket"
)

// IngestProgressHandler 摄取进度推送
type IngestProgressHandler struct {
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewIngestProgressHandler 创建摄取进度处理器
func NewIngestProgressHandler(hub *websocket.Hub) *IngestProgressHandler {
	return &IngestProgressHandler{
		hub:    hub,
		logger: log.NewModuleLogger("http", "ingest_ws"),
	}
}

// Subscribe 订阅某本教材的摄取进度
// GET /ws/ingest/:pdf_id
func (h *IngestProgressHandler) Subscribe(c *gin.Context) {
	id := c.Param("pdf_id")
	if err := h.hub.ServeDocument(c.Writer, c.Request, id); err != nil {
		h.logger.Debug("WebSocket subscribe failed", "document_id", id, "error", err)
		if !c.Writer.Written() {
			c.AbortWithStatus(http.StatusBadRequest)
		}
	}
}
