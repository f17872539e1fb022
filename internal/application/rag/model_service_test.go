package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/settings"
)

func newTestModelService(t *testing.T) (*ModelService, *llm.ModelSession) {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())
	config.ResetDataDir()
	t.Cleanup(config.ResetDataDir)

	cfg := config.DefaultConfig()
	manager, err := settings.NewConfigManager(cfg)
	require.NoError(t, err)

	client := llm.NewClient(&cfg.LLM)
	session := llm.NewModelSession(client, &cfg.LLM, nil)
	return NewModelService(session, client, manager), session
}

// TestModelService_Update 测试设置校验、持久化与生效
func TestModelService_Update(t *testing.T) {
	svc, session := newTestModelService(t)

	model := "llama-3-8b"
	temp := 0.2
	key := "sk-secret"
	updated, err := svc.Update(SettingsUpdate{Model: &model, Temperature: &temp, APIKey: &key})
	require.NoError(t, err)

	assert.Equal(t, "llama-3-8b", updated.Model)
	assert.Equal(t, maskedKey, updated.APIKey)
	assert.Equal(t, "llama-3-8b", session.CurrentModel())
	assert.Equal(t, 0.2, session.Options().Temperature)

	current, err := svc.Settings()
	require.NoError(t, err)
	assert.Equal(t, maskedKey, current.APIKey)
	assert.Equal(t, 2048, current.MaxTokens)

	// 回传占位符不会覆盖原 Key
	masked := maskedKey
	_, err = svc.Update(SettingsUpdate{APIKey: &masked})
	require.NoError(t, err)
	assert.NoError(t, svc.Apply())
}

// TestModelService_Update_Invalid 测试非法参数
func TestModelService_Update_Invalid(t *testing.T) {
	svc, session := newTestModelService(t)

	empty := ""
	badTemp := 3.5
	badTokens := 0

	tests := []struct {
		name   string
		update SettingsUpdate
	}{
		{"空模型名", SettingsUpdate{Model: &empty}},
		{"温度越界", SettingsUpdate{Temperature: &badTemp}},
		{"max_tokens 非正", SettingsUpdate{MaxTokens: &badTokens}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(tt.update)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
	assert.Equal(t, "mistral-7b-instruct", session.CurrentModel())
}

// TestModelService_SwitchModel 切换模型后重新加载仍然生效
func TestModelService_SwitchModel(t *testing.T) {
	svc, session := newTestModelService(t)

	require.NoError(t, svc.SwitchModel("phi-3"))
	session.SetOptions(llm.Options{Model: "other"})

	require.NoError(t, svc.Apply())
	assert.Equal(t, "phi-3", svc.CurrentModel())
}
