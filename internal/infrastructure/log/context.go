package log

import (
	"context"
	"log/slog"
)

// ctxKey 上下文键类型
type ctxKey string

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID ctxKey = "request_id"

	// SessionContextID 会话 ID
	SessionContextID ctxKey = "session_id"

	// DocumentContextID 教材 ID
	DocumentContextID ctxKey = "document_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithSessionID 在上下文中添加会话 ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextID, sessionID)
}

// WithDocumentID 在上下文中添加教材 ID
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentContextID, documentID)
}

// RequestIDFromContext 读取请求 ID
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestContextID).(string); ok {
		return v
	}
	return ""
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	for _, key := range []ctxKey{RequestContextID, SessionContextID, DocumentContextID} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}

	return attrs
}

// FromContext 返回附带上下文字段的 logger
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := LogCtxFromContext(ctx)
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return logger.With(args...)
}
