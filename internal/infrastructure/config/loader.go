package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadError 返回加载配置文件时的错误（默认值仍然可用）
func (c *Config) LoadError() error {
	return c.loadErr
}

// Load 依次叠加配置文件、.env 与环境变量
func (c *Config) Load() error {
	// .env 只补充未设置的环境变量
	_ = godotenv.Load()

	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(GetDataDir(), "config.yaml")
	}
	if err := c.LoadFile(path); err != nil {
		c.applyEnv()
		c.resolvePaths()
		return err
	}

	c.applyEnv()
	c.resolvePaths()
	return nil
}

// LoadFile 读取 YAML 配置文件，文件不存在时忽略
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv() {
	overrideString(&c.Server.HTTPPort, EnvHTTPPort)
	overrideString(&c.Server.MCPPort, EnvMCPPort)
	overrideString(&c.Storage.UploadDir, EnvUploadDir)
	overrideString(&c.Inbox.Dir, EnvInboxDir)
	overrideString(&c.Embedding.URL, EnvEmbeddingURL)
	overrideString(&c.Embedding.APIKey, EnvEmbeddingKey)
	overrideString(&c.Embedding.Model, EnvEmbeddingName)
	overrideString(&c.LLM.URL, EnvLLMAPI)
	overrideString(&c.LLM.Model, EnvLLMModel)
	overrideString(&c.LLM.APIKey, EnvLLMKey)
	overrideString(&c.Vector.Backend, EnvVectorBackend)
	overrideString(&c.Vector.QdrantHost, EnvQdrantHost)
	overrideInt(&c.Vector.QdrantPort, EnvQdrantPort)
	overrideString(&c.Redis.Addr, EnvRedisAddr)
	overrideInt(&c.Chunking.MaxLen, EnvChunkMaxLen)
}

// resolvePaths 补全依赖数据目录的路径
func (c *Config) resolvePaths() {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(GetDataDir(), "drax.db")
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = filepath.Join(GetDataDir(), "pdfs")
	}
}

// overrideString 非空环境变量覆盖字符串
func overrideString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// overrideInt 可解析的环境变量覆盖整数
func overrideInt(target *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*target = n
	}
}
