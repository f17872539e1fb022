package log

import (
	"os"
	"strconv"
	"strings"
)

// 日志相关环境变量
const (
	envLevel     = "LOG_LEVEL"
	envFormat    = "LOG_FORMAT"
	envOutput    = "LOG_OUTPUT"
	envAddSource = "LOG_ADD_SOURCE"
	envMode      = "DRAX_ENV"
	envModeAlias = "ENV"
)

// 支持的输出格式
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatText    = "text"
)

// Config 日志配置
type Config struct {
	// Level debug, info, warn, error
	Level string `json:"level"`

	// Format console, json, text
	Format string `json:"format"`

	// Output stdout, stderr, file:/path/to/log
	Output string `json:"output"`

	// AddSource 记录调用位置
	AddSource bool `json:"add_source"`
}

// NewConfigFromEnv 从环境变量读取日志配置
// DRAX_ENV（或 ENV）为 development 时强制 debug 级别的控制台输出
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:     os.Getenv(envLevel),
		Format:    os.Getenv(envFormat),
		Output:    os.Getenv(envOutput),
		AddSource: envBool(envAddSource),
	}

	if developmentMode() {
		cfg.Level = "debug"
		cfg.Format = FormatConsole
		cfg.AddSource = true
	}

	cfg.normalize()
	return cfg
}

// NewCLIConfigFromEnv 命令行工具使用的日志配置
// 未显式设置时只输出 warn 以上级别到 stderr，stdout 留给命令结果
func NewCLIConfigFromEnv() *Config {
	cfg := NewConfigFromEnv()
	if os.Getenv(envLevel) == "" && !developmentMode() {
		cfg.Level = "warn"
	}
	if os.Getenv(envOutput) == "" {
		cfg.Output = "stderr"
	}
	return cfg
}

// normalize 统一大小写并填充默认值，未知格式退回控制台输出
func (c *Config) normalize() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	if c.Level == "" {
		c.Level = "info"
	}

	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case FormatConsole, FormatJSON, FormatText:
	default:
		c.Format = FormatConsole
	}

	c.Output = strings.TrimSpace(c.Output)
	if c.Output == "" {
		c.Output = "stdout"
	}
}

func developmentMode() bool {
	mode := os.Getenv(envMode)
	if mode == "" {
		mode = os.Getenv(envModeAlias)
	}
	return strings.EqualFold(mode, "development")
}

// envBool 解析布尔环境变量，无法解析时视为 false
func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
