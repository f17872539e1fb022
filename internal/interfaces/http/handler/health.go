package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nymav/drax-tbs/internal/infrastructure/singleton"
	"github.com/nymav/drax-tbs/internal/interfaces/http/response"
)

// Health 健康检查，单例检测依赖 service 字段
// GET /health
func Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "ok",
		"service": singleton.ServiceName,
	})
}
