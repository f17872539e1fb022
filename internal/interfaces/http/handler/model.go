package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/settings"
	"github.com/nymav/drax-tbs/internal/interfaces/http/response"
)

// modelSettings 运行时模型设置
type modelSettings interface {
	Settings() (*settings.ModelSettings, error)
	Update(u appRAG.SettingsUpdate) (*settings.ModelSettings, error)
	ListModels(ctx context.Context) ([]string, error)
	Stats() map[string]llm.ModelStats
	History() []llm.RequestRecord
	CurrentModel() string
}

// ModelHandler 模型设置与统计
type ModelHandler struct {
	models modelSettings
}

// NewModelHandler 创建模型处理器
func NewModelHandler(models *appRAG.ModelService) *ModelHandler {
	return &ModelHandler{models: models}
}

// GetSettings 获取模型设置
// GET /api/settings/model
func (h *ModelHandler) GetSettings(c *gin.Context) {
	current, err := h.models.Settings()
	if err != nil {
		response.InternalError(c, "Failed to read model settings", err)
		return
	}
	response.Success(c, current)
}

// UpdateSettings 更新模型设置，未提供的字段保持不变
// POST /api/settings/model
func (h *ModelHandler) UpdateSettings(c *gin.Context) {
	var req appRAG.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	updated, err := h.models.Update(req)
	if err != nil {
		if errors.Is(err, appRAG.ErrInvalidSettings) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "Failed to save model settings", err)
		return
	}
	response.Success(c, updated)
}

// ListModels 列出模型服务可用的模型
// GET /api/models
func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := h.models.ListModels(c.Request.Context())
	if err != nil {
		response.ErrorWithDetail(c, http.StatusBadGateway, response.CodeUnavailable,
			"Cannot list models from LM Studio", err.Error())
		return
	}
	response.Success(c, gin.H{
		"current": h.models.CurrentModel(),
		"models":  models,
	})
}

// Stats 各模型的累计统计与最近请求
// GET /api/models/stats
func (h *ModelHandler) Stats(c *gin.Context) {
	response.Success(c, gin.H{
		"current": h.models.CurrentModel(),
		"stats":   h.models.Stats(),
		"history": h.models.History(),
	})
}
