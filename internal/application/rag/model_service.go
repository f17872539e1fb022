package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/infrastructure/settings"
)

// ErrInvalidSettings 模型设置参数非法
var ErrInvalidSettings = errors.New("invalid model settings")

// maskedKey 返回给客户端的 API Key 占位
const maskedKey = "********"

// SettingsUpdate 模型设置的部分更新，nil 字段保持不变
type SettingsUpdate struct {
	Model            *string  `json:"model"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	SystemMessage    *string  `json:"system_message"`
	APIKey           *string  `json:"api_key"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
}

// ModelService 运行时模型设置：持久化并同步到模型会话
type ModelService struct {
	session  *llm.ModelSession
	client   *llm.Client
	settings *settings.ConfigManager
	logger   *slog.Logger
}

// NewModelService 创建模型设置服务
func NewModelService(session *llm.ModelSession, client *llm.Client, manager *settings.ConfigManager) *ModelService {
	return &ModelService{
		session:  session,
		client:   client,
		settings: manager,
		logger:   log.NewModuleLogger("rag", "model"),
	}
}

// Apply 读取已保存的设置并应用到模型会话
func (s *ModelService) Apply() error {
	current, err := s.settings.Read()
	if err != nil {
		return fmt.Errorf("failed to read model settings: %w", err)
	}
	s.apply(current)
	s.logger.Info("Model settings applied", "model", current.Model)
	return nil
}

// Settings 返回当前设置，API Key 以占位符代替
func (s *ModelService) Settings() (*settings.ModelSettings, error) {
	current, err := s.settings.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read model settings: %w", err)
	}
	if current.APIKey != "" {
		current.APIKey = maskedKey
	}
	return current, nil
}

// Update 校验并保存设置，成功后立即生效
func (s *ModelService) Update(u SettingsUpdate) (*settings.ModelSettings, error) {
	current, err := s.settings.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read model settings: %w", err)
	}

	if u.Model != nil {
		if *u.Model == "" {
			return nil, fmt.Errorf("%w: model name is required", ErrInvalidSettings)
		}
		current.Model = *u.Model
	}
	if u.Temperature != nil {
		if *u.Temperature < 0 || *u.Temperature > 2 {
			return nil, fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidSettings)
		}
		current.Temperature = *u.Temperature
	}
	if u.MaxTokens != nil {
		if *u.MaxTokens <= 0 {
			return nil, fmt.Errorf("%w: max_tokens must be positive", ErrInvalidSettings)
		}
		current.MaxTokens = *u.MaxTokens
	}
	if u.SystemMessage != nil {
		current.SystemMessage = *u.SystemMessage
	}
	// 客户端回传占位符时保留原 Key
	if u.APIKey != nil && *u.APIKey != maskedKey {
		current.APIKey = *u.APIKey
	}
	if u.TopP != nil {
		current.TopP = u.TopP
	}
	if u.FrequencyPenalty != nil {
		current.FrequencyPenalty = u.FrequencyPenalty
	}
	if u.PresencePenalty != nil {
		current.PresencePenalty = u.PresencePenalty
	}

	if err := s.settings.Write(current); err != nil {
		return nil, fmt.Errorf("failed to save model settings: %w", err)
	}
	s.apply(current)

	s.logger.Info("Model settings updated", "model", current.Model)

	out := *current
	if out.APIKey != "" {
		out.APIKey = maskedKey
	}
	return &out, nil
}

// SwitchModel 切换当前模型并持久化
func (s *ModelService) SwitchModel(name string) error {
	_, err := s.Update(SettingsUpdate{Model: &name})
	return err
}

// ListModels 查询可用模型
func (s *ModelService) ListModels(ctx context.Context) ([]string, error) {
	return s.session.ListModels(ctx)
}

// Stats 各模型累计统计
func (s *ModelService) Stats() map[string]llm.ModelStats {
	return s.session.Stats()
}

// History 最近请求记录
func (s *ModelService) History() []llm.RequestRecord {
	return s.session.History()
}

// CurrentModel 当前模型
func (s *ModelService) CurrentModel() string {
	return s.session.CurrentModel()
}

func (s *ModelService) apply(m *settings.ModelSettings) {
	opts := s.session.Options()
	opts.Model = m.Model
	opts.Temperature = m.Temperature
	opts.MaxTokens = m.MaxTokens
	opts.SystemMessage = m.SystemMessage
	opts.TopP = m.TopP
	opts.FrequencyPenalty = m.FrequencyPenalty
	opts.PresencePenalty = m.PresencePenalty
	s.session.SetOptions(opts)

	if m.APIKey != "" {
		s.client.SetAPIKey(m.APIKey)
	}
}
