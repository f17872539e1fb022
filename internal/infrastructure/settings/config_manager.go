package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
)

// ModelSettings 运行时可修改的模型设置
type ModelSettings struct {
	Model            string   `json:"model"`
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	SystemMessage    string   `json:"system_message"`
	APIKey           string   `json:"api_key,omitempty"` // 加密存储
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

// ConfigManager 模型设置持久化
type ConfigManager struct {
	mu         sync.Mutex
	configPath string
	encryptKey *EncryptionKey
	defaults   ModelSettings
}

// NewConfigManager 创建模型设置管理器，文件位于数据目录下
func NewConfigManager(cfg *config.Config) (*ConfigManager, error) {
	dataDir := config.GetDataDir()

	encryptKey, err := NewEncryptionKey(filepath.Join(dataDir, ".settings_key"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption key: %w", err)
	}

	return &ConfigManager{
		configPath: filepath.Join(dataDir, "model_settings.json"),
		encryptKey: encryptKey,
		defaults:   DefaultsFrom(&cfg.LLM),
	}, nil
}

// DefaultsFrom 由 LLM 配置生成默认设置
func DefaultsFrom(cfg *config.LLMConfig) ModelSettings {
	return ModelSettings{
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		SystemMessage: cfg.SystemMessage,
		APIKey:        cfg.APIKey,
	}
}

// Read 读取模型设置，文件不存在时返回默认值
func (c *ConfigManager) Read() (*ModelSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.configPath)
	if os.IsNotExist(err) {
		s := c.defaults
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := c.defaults
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if s.APIKey != "" && c.encryptKey != nil {
		if decrypted, err := c.encryptKey.Decrypt(s.APIKey); err == nil {
			s.APIKey = decrypted
		}
	}

	return &s, nil
}

// Write 写入模型设置
func (c *ConfigManager) Write(s *ModelSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := *s
	if out.APIKey != "" && c.encryptKey != nil {
		if encrypted, err := c.encryptKey.Encrypt(out.APIKey); err == nil {
			out.APIKey = encrypted
		}
	}

	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
