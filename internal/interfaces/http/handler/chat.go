package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/interfaces/http/response"
)

// questionAnswerer 问答编排
type questionAnswerer interface {
	Ask(ctx context.Context, q domainRAG.Question) *appRAG.Result
	AskStream(ctx context.Context, q domainRAG.Question, onDelta func(string) error) (*appRAG.Result, error)
}

// ChatRequest 提问请求
type ChatRequest struct {
	Query     string `json:"query" binding:"required"`
	Role      string `json:"role"`
	PDFID     string `json:"pdf_id"`
	SessionID string `json:"session_id"`
}

func (r ChatRequest) question() domainRAG.Question {
	return domainRAG.Question{
		Query:      r.Query,
		Role:       r.Role,
		DocumentID: r.PDFID,
		SessionID:  r.SessionID,
	}
}

// ChatHandler 问答接口
type ChatHandler struct {
	rag    questionAnswerer
	logger *slog.Logger
}

// NewChatHandler 创建问答处理器
func NewChatHandler(rag *appRAG.RAGService) *ChatHandler {
	return &ChatHandler{
		rag:    rag,
		logger: log.NewModuleLogger("http", "chat"),
	}
}

// Ask 提问
// POST /api/chat
// 生成阶段的故障由编排层转成固定回答，这里只会因请求体非法而失败
func (h *ChatHandler) Ask(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result := h.rag.Ask(c.Request.Context(), req.question())
	response.Success(c, result.Answer)
}

// Stream 流式提问，以 SSE 输出
// POST /api/chat/stream
// 事件: delta {content} 若干次，最后 done {answer, citations} 或 error {message}
func (h *ChatHandler) Stream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	result, err := h.rag.AskStream(ctx, req.question(), func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent("delta", gin.H{"content": delta})
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("Chat stream failed", "error", err)
			c.SSEvent("error", gin.H{"message": err.Error()})
			c.Writer.Flush()
		}
		return
	}

	c.SSEvent("done", result.Answer)
	c.Writer.Flush()
}
