package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// JSONHandler JSON 格式日志处理器
type JSONHandler struct {
	opts  *slog.HandlerOptions
	mu    *sync.Mutex
	enc   *json.Encoder
	attrs []slog.Attr
}

// NewJSONHandler 创建 JSON 处理器
func NewJSONHandler(out io.Writer, opts *slog.HandlerOptions) *JSONHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &JSONHandler{
		opts: opts,
		mu:   &sync.Mutex{},
		enc:  json.NewEncoder(out),
	}
}

// Enabled 检查日志级别是否启用
func (h *JSONHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := h.opts.Level
	if minLevel == nil {
		return level >= slog.LevelInfo
	}
	return level >= minLevel.Level()
}

// Handle 处理日志记录
func (h *JSONHandler) Handle(ctx context.Context, r slog.Record) error {
	obj := make(map[string]any, len(h.attrs)+r.NumAttrs()+3)

	// 基础字段
	obj["time"] = r.Time.Format(time.RFC3339Nano)
	obj["level"] = r.Level.String()
	obj["msg"] = r.Message

	for _, a := range h.attrs {
		obj[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		obj[a.Key] = attrValue(a.Value)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enc.Encode(obj)
}

// WithAttrs 返回带有额外属性的处理器
func (h *JSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &JSONHandler{
		opts:  h.opts,
		mu:    h.mu,
		enc:   h.enc,
		attrs: merged,
	}
}

// WithGroup 返回带有分组的处理器
func (h *JSONHandler) WithGroup(name string) slog.Handler {
	return h
}

// attrValue 把属性值转换为可 JSON 编码的值
func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return s.String()
		}
	}
	return v.Any()
}
