package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nymav/drax-tbs/internal/infrastructure/log/handler"
)

// ServiceName 日志中的服务标识
const ServiceName = "drax-tbs"

// 全局 logger 实例
var (
	defaultLogger *slog.Logger
	debugMode     bool
	initMu        sync.Mutex
)

// Init 初始化日志系统
func Init(cfg *Config) {
	if cfg == nil {
		cfg = NewConfigFromEnv()
	} else {
		normalized := *cfg
		normalized.normalize()
		cfg = &normalized
	}

	initMu.Lock()
	defer initMu.Unlock()

	// 创建 handler options
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	out := openOutput(cfg.Output)

	// 根据格式选择处理器
	var logHandler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		logHandler = handler.NewJSONHandler(out, opts)
	case FormatText:
		logHandler = slog.NewTextHandler(out, opts)
	default:
		logHandler = handler.NewConsoleHandler(out, opts)
	}

	// 添加服务标识
	defaultLogger = slog.New(logHandler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
	}))

	debugMode = cfg.Level == "debug"

	slog.SetDefault(defaultLogger)
}

// GetLogger 获取默认 logger
func GetLogger() *slog.Logger {
	initMu.Lock()
	initialized := defaultLogger != nil
	initMu.Unlock()

	if !initialized {
		// 未初始化，使用默认配置
		Init(nil)
	}
	return defaultLogger
}

// With 创建带有额外字段的 logger
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// NewModuleLogger 为特定模块创建 logger
func NewModuleLogger(module, component string) *slog.Logger {
	return GetLogger().With(
		slog.String("module", module),
		slog.String("component", component),
	)
}

// IsDebugMode 检查是否为调试模式
func IsDebugMode() bool {
	return debugMode
}

// openOutput 解析输出目标：stdout、stderr 或 file:/path/to/log
func openOutput(output string) io.Writer {
	switch {
	case output == "" || output == "stdout":
		return os.Stdout
	case output == "stderr":
		return os.Stderr
	case strings.HasPrefix(output, "file:"):
		path := strings.TrimPrefix(output, "file:")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return os.Stdout
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}

// parseLevel 解析日志级别
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
