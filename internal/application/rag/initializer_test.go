package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/embedding"
	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/settings"
)

func newTestInitializer(t *testing.T, embeddingURL, llmURL string) *Initializer {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())
	config.ResetDataDir()
	t.Cleanup(config.ResetDataDir)

	cfg := config.DefaultConfig()
	cfg.Embedding.URL = embeddingURL + "/v1"
	cfg.Embedding.Timeout = 2 * time.Second
	cfg.LLM.URL = llmURL + "/v1/chat/completions"
	cfg.LLM.Timeout = 2 * time.Second

	manager, err := settings.NewConfigManager(cfg)
	require.NoError(t, err)

	client := llm.NewClient(&cfg.LLM)
	session := llm.NewModelSession(client, &cfg.LLM, nil)
	return NewInitializer(embedding.NewClient(&cfg.Embedding), NewModelService(session, client, manager))
}

// TestInitializer_Warmup 测试启动检查
func TestInitializer_Warmup(t *testing.T) {
	t.Run("服务均可用", func(t *testing.T) {
		embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0}},
			})
		}))
		defer embedSrv.Close()

		llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"id": "mistral-7b-instruct"}, {"id": "llama-3-8b"}},
			})
		}))
		defer llmSrv.Close()

		report := newTestInitializer(t, embedSrv.URL, llmSrv.URL).Warmup(context.Background())
		assert.True(t, report.EmbeddingOK)
		assert.True(t, report.ModelOK)
		assert.Equal(t, []string{"mistral-7b-instruct", "llama-3-8b"}, report.Models)
	})

	t.Run("服务不可用时不阻塞", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer down.Close()

		report := newTestInitializer(t, down.URL, down.URL).Warmup(context.Background())
		assert.False(t, report.EmbeddingOK)
		assert.False(t, report.ModelOK)
		assert.Equal(t, []string{}, report.Models)
	})
}
