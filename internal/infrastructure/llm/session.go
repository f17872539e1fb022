package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/infrastructure/tokenizer"
)

// RequestRecord 单次请求记录
type RequestRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Model        string    `json:"model"`
	PromptLength int       `json:"prompt_length"`
	ResponseTime float64   `json:"response_time"`
	StatusCode   int       `json:"status_code"`
}

// ModelStats 单个模型的累计统计
type ModelStats struct {
	TotalRequests        int     `json:"total_requests"`
	TotalResponseTime    float64 `json:"total_response_time"`
	AvgResponseTime      float64 `json:"avg_response_time"`
	TotalTokensProcessed int     `json:"total_tokens_processed"`
	AvgTokensPerSecond   float64 `json:"avg_tokens_per_second"`
}

// ModelSession 持有当前模型选择、请求历史与统计
// 每个实例互相独立，可在测试中并行创建
type ModelSession struct {
	mu           sync.RWMutex
	client       *Client
	opts         Options
	available    []string
	history      []RequestRecord
	historyLimit int
	stats        map[string]*ModelStats
	counter      tokenizer.Counter
	logger       *slog.Logger
}

// NewModelSession 创建模型会话
func NewModelSession(client *Client, cfg *config.LLMConfig, counter tokenizer.Counter) *ModelSession {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 100
	}
	if counter == nil {
		counter = tokenizer.WordCounter{}
	}
	return &ModelSession{
		client:       client,
		opts:         DefaultOptions(cfg),
		historyLimit: limit,
		stats:        make(map[string]*ModelStats),
		counter:      counter,
		logger:       log.NewModuleLogger("llm", "session"),
	}
}

// Options 当前参数
func (s *ModelSession) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// SetOptions 替换当前参数，未设置的超时沿用原值
func (s *ModelSession) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Timeout <= 0 {
		opts.Timeout = s.opts.Timeout
	}
	s.opts = opts
}

// CurrentModel 当前模型名
func (s *ModelSession) CurrentModel() string {
	return s.Options().Model
}

// SwitchModel 切换模型，任何非空名称都被接受
func (s *ModelSession) SwitchModel(name string) error {
	if name == "" {
		return errors.New("model name is required")
	}
	s.mu.Lock()
	s.opts.Model = name
	s.mu.Unlock()

	s.logger.Info("Switched model", "model", name)
	return nil
}

// ListModels 查询并缓存可用模型
func (s *ModelSession) ListModels(ctx context.Context) ([]string, error) {
	models, err := s.client.ListModels(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch models", "error", err)
		return nil, err
	}
	s.mu.Lock()
	s.available = models
	s.mu.Unlock()
	return models, nil
}

// Complete 用当前参数补全，失败时返回错误文本
func (s *ModelSession) Complete(ctx context.Context, prompt string) string {
	opts := s.Options()
	result, err := s.client.Generate(ctx, prompt, opts)
	s.record(opts.Model, prompt, result)

	if err != nil {
		s.logger.Warn("Completion failed",
			"model", opts.Model,
			"error", err,
		)
		return ErrorText(err)
	}

	s.updateStats(opts.Model, result.Duration, prompt, result.Text)
	return result.Text
}

// Stream 用当前参数流式补全
func (s *ModelSession) Stream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	opts := s.Options()
	start := time.Now()
	text, err := s.client.Stream(ctx, prompt, opts, onDelta)
	elapsed := time.Since(start)

	status := 200
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		status = statusErr.Code
	}
	s.record(opts.Model, prompt, &Completion{StatusCode: status, Duration: elapsed})

	if err != nil {
		return text, err
	}
	s.updateStats(opts.Model, elapsed, prompt, text)
	return text, nil
}

// Stats 返回所有模型统计的副本
func (s *ModelSession) Stats() map[string]ModelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ModelStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = *v
	}
	return out
}

// History 返回请求历史副本
func (s *ModelSession) History() []RequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RequestRecord, len(s.history))
	copy(out, s.history)
	return out
}

// record 记录请求，只有收到响应的请求才计入历史
func (s *ModelSession) record(model, prompt string, result *Completion) {
	if result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, RequestRecord{
		Timestamp:    time.Now(),
		Model:        model,
		PromptLength: len(prompt),
		ResponseTime: result.Duration.Seconds(),
		StatusCode:   result.StatusCode,
	})
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
}

// updateStats 成功请求累计统计
func (s *ModelSession) updateStats(model string, elapsed time.Duration, prompt, response string) {
	tokens := s.counter.CountTokens(prompt) + s.counter.CountTokens(response)
	seconds := elapsed.Seconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[model]
	if !ok {
		st = &ModelStats{}
		s.stats[model] = st
	}
	st.TotalRequests++
	st.TotalResponseTime += seconds
	st.AvgResponseTime = st.TotalResponseTime / float64(st.TotalRequests)
	st.TotalTokensProcessed += tokens
	if st.TotalResponseTime > 0 {
		st.AvgTokensPerSecond = float64(st.TotalTokensProcessed) / st.TotalResponseTime
	}
}
