package config

import (
	"time"
)

// 环境变量名
const (
	EnvConfigFile    = "DRAX_CONFIG"
	EnvHTTPPort      = "DRAX_HTTP_PORT"
	EnvMCPPort       = "DRAX_MCP_PORT"
	EnvUploadDir     = "DRAX_UPLOAD_DIR"
	EnvInboxDir      = "DRAX_INBOX_DIR"
	EnvEmbeddingURL  = "EMBEDDING_API_URL"
	EnvEmbeddingKey  = "EMBEDDING_API_KEY"
	EnvEmbeddingName = "EMBEDDING_MODEL"
	EnvLLMAPI        = "LMSTUDIO_API"
	EnvLLMModel      = "LLM_MODEL"
	EnvLLMKey        = "LLM_API_KEY"
	EnvVectorBackend = "VECTOR_BACKEND"
	EnvQdrantHost    = "QDRANT_HOST"
	EnvQdrantPort    = "QDRANT_PORT"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvChunkMaxLen   = "CHUNK_MAX_LEN"
)

// 向量后端
const (
	VectorBackendSQLite = "sqlite"
	VectorBackendMemory = "memory"
	VectorBackendQdrant = "qdrant"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Vector    VectorConfig    `yaml:"vector"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Memory    MemoryConfig    `yaml:"memory"`
	Redis     RedisConfig     `yaml:"redis"`
	Inbox     InboxConfig     `yaml:"inbox"`
	Ingest    IngestConfig    `yaml:"ingest"`

	loadErr error
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"` // 固定端口，用于单例锁
	MCPPort  string `yaml:"mcp_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"` // 留空表示 <数据目录>/drax.db
}

// StorageConfig 上传文件存储配置
type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"` // 留空表示 <数据目录>/pdfs
	MaxUpload int64  `yaml:"max_upload_bytes"`
}

// EmbeddingConfig Embedding 服务配置
type EmbeddingConfig struct {
	URL               string        `yaml:"url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	BatchSize         int           `yaml:"batch_size"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// LLMConfig 语言模型配置
type LLMConfig struct {
	URL           string        `yaml:"url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	SystemMessage string        `yaml:"system_message"`
	Timeout       time.Duration `yaml:"timeout"`
	HistoryLimit  int           `yaml:"history_limit"`
}

// VectorConfig 向量索引配置
type VectorConfig struct {
	Backend    string `yaml:"backend"` // sqlite | memory | qdrant
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	TopK       int    `yaml:"top_k"`
}

// ChunkingConfig 切块配置
type ChunkingConfig struct {
	MaxLen int `yaml:"max_len"`
}

// MemoryConfig 会话记忆配置
type MemoryConfig struct {
	Enabled         bool `yaml:"enabled"`
	MaxContextChars int  `yaml:"max_context_chars"`
}

// RedisConfig 查询向量缓存配置，Addr 为空表示不启用
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// InboxConfig 收件箱自动摄取配置，Dir 为空表示不启用
type InboxConfig struct {
	Dir           string        `yaml:"dir"`
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// IngestConfig 后台摄取配置
type IngestConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// NewConfig 创建配置（默认值 + 配置文件 + 环境变量）
func NewConfig() *Config {
	cfg := DefaultConfig()
	if err := cfg.Load(); err != nil {
		// 配置文件损坏时保留默认值继续启动
		cfg.loadErr = err
	}
	return cfg
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":19970",
			MCPPort:  ":19971",
		},
		Storage: StorageConfig{
			MaxUpload: 200 << 20,
		},
		Embedding: EmbeddingConfig{
			URL:               "http://localhost:1234/v1",
			Model:             "text-embedding-nomic-embed-text-v1.5",
			Timeout:           30 * time.Second,
			BatchSize:         64,
			Concurrency:       2,
			RequestsPerSecond: 10,
		},
		LLM: LLMConfig{
			URL:           "http://localhost:1234/v1/chat/completions",
			Model:         "mistral-7b-instruct",
			Temperature:   0.7,
			MaxTokens:     2048,
			SystemMessage: "You are a helpful assistant.",
			Timeout:       60 * time.Second,
			HistoryLimit:  100,
		},
		Vector: VectorConfig{
			Backend:    VectorBackendSQLite,
			QdrantHost: "localhost",
			QdrantPort: 6334,
			TopK:       8,
		},
		Chunking: ChunkingConfig{
			MaxLen: 500,
		},
		Memory: MemoryConfig{
			Enabled:         true,
			MaxContextChars: 1500,
		},
		Redis: RedisConfig{
			TTL: 24 * time.Hour,
		},
		Inbox: InboxConfig{
			DebounceDelay: 2 * time.Second,
		},
		Ingest: IngestConfig{
			Workers:   2,
			QueueSize: 32,
		},
	}
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewEmbeddingConfig 创建 Embedding 配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewLLMConfig 创建 LLM 配置
func NewLLMConfig(cfg *Config) *LLMConfig {
	return &cfg.LLM
}

// NewVectorConfig 创建向量索引配置
func NewVectorConfig(cfg *Config) *VectorConfig {
	return &cfg.Vector
}

// NewRedisConfig 创建 Redis 配置
func NewRedisConfig(cfg *Config) *RedisConfig {
	return &cfg.Redis
}
