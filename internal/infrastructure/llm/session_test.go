package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/tokenizer"
)

func newTestSession(t *testing.T, handler http.HandlerFunc) *ModelSession {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().LLM
	cfg.URL = srv.URL + "/v1/chat/completions"
	cfg.HistoryLimit = 3
	return NewModelSession(NewClient(&cfg), &cfg, tokenizer.WordCounter{})
}

func echoModel(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	_ = json.NewEncoder(w).Encode(map[string]any{"response": "model " + req.Model})
}

// TestModelSession_CompleteAndStats 测试补全与统计累计
func TestModelSession_CompleteAndStats(t *testing.T) {
	s := newTestSession(t, echoModel)
	ctx := context.Background()

	assert.Equal(t, "model mistral-7b-instruct", s.Complete(ctx, "one two"))
	assert.Equal(t, "model mistral-7b-instruct", s.Complete(ctx, "three"))

	stats := s.Stats()
	require.Contains(t, stats, "mistral-7b-instruct")
	st := stats["mistral-7b-instruct"]
	assert.Equal(t, 2, st.TotalRequests)
	// 词数：prompt(2+1) + 回答(2+2)
	assert.Equal(t, 7, st.TotalTokensProcessed)
	assert.InDelta(t, st.TotalResponseTime/2, st.AvgResponseTime, 1e-9)

	assert.Len(t, s.History(), 2)
}

// TestModelSession_SwitchModel 测试切换模型
func TestModelSession_SwitchModel(t *testing.T) {
	s := newTestSession(t, echoModel)

	assert.Error(t, s.SwitchModel(""))
	require.NoError(t, s.SwitchModel("phi-3"))
	assert.Equal(t, "phi-3", s.CurrentModel())
	assert.Equal(t, "model phi-3", s.Complete(context.Background(), "q"))
	assert.Contains(t, s.Stats(), "phi-3")
}

// TestModelSession_FailureNotCounted 测试失败请求只记入历史
func TestModelSession_FailureNotCounted(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.Equal(t, "Error: API returned status 503", s.Complete(context.Background(), "q"))
	assert.Empty(t, s.Stats())

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, http.StatusServiceUnavailable, history[0].StatusCode)
}

// TestModelSession_HistoryBounded 测试历史长度上限
func TestModelSession_HistoryBounded(t *testing.T) {
	s := newTestSession(t, echoModel)
	for i := 0; i < 5; i++ {
		s.Complete(context.Background(), "q")
	}
	assert.Len(t, s.History(), 3)
}

// TestModelSession_Independent 测试多个会话互不影响且可并发使用
func TestModelSession_Independent(t *testing.T) {
	a := newTestSession(t, echoModel)
	b := newTestSession(t, echoModel)
	require.NoError(t, b.SwitchModel("other"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.Complete(context.Background(), "q") }()
		go func() { defer wg.Done(); b.Complete(context.Background(), "q") }()
	}
	wg.Wait()

	assert.Equal(t, 4, a.Stats()["mistral-7b-instruct"].TotalRequests)
	assert.NotContains(t, a.Stats(), "other")
	assert.Equal(t, 4, b.Stats()["other"].TotalRequests)
}

// TestModelSession_SetOptions 测试替换参数保留超时
func TestModelSession_SetOptions(t *testing.T) {
	s := newTestSession(t, echoModel)
	before := s.Options().Timeout

	s.SetOptions(Options{Model: "x", Temperature: 0.1, MaxTokens: 10})
	assert.Equal(t, "x", s.CurrentModel())
	assert.Equal(t, before, s.Options().Timeout)
}
