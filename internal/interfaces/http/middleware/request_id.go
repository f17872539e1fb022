package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// RequestID 为每个请求生成请求 ID 并写入日志上下文
// 客户端已携带时沿用客户端的值
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(log.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
