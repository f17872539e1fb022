package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// 模型服务的错误分类
var (
	ErrInvalidJSON = errors.New("invalid JSON response from API")
	ErrEmptyStream = errors.New("stream returned no content")
	ErrConnection  = fmt.Errorf("cannot connect to model server: %w", rag.ErrModelUnavailable)
	ErrTimeout     = fmt.Errorf("model request timed out: %w", rag.ErrModelUnavailable)
)

// StatusError 非 200 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d", e.Code)
}

// Unwrap 非 200 也视为模型不可用
func (e *StatusError) Unwrap() error {
	return rag.ErrModelUnavailable
}

// ErrorText 将错误转换为可直接展示给用户的回答文本
func ErrorText(err error) string {
	var statusErr *StatusError
	var formatErr *UnknownFormatError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Error: API returned status %d", statusErr.Code)
	case errors.Is(err, ErrInvalidJSON):
		return "Error: Invalid JSON response from API"
	case errors.Is(err, ErrConnection):
		return "Error: Cannot connect to LM Studio. Is it running?"
	case errors.Is(err, ErrTimeout):
		return "Error: Request timed out"
	case errors.As(err, &formatErr):
		return "Error: " + formatErr.Error()
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// Options 单次补全参数
type Options struct {
	Model            string        `json:"model"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	SystemMessage    string        `json:"system_message"`
	Timeout          time.Duration `json:"-"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
}

// DefaultOptions 由配置生成默认参数
func DefaultOptions(cfg *config.LLMConfig) Options {
	return Options{
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		SystemMessage: cfg.SystemMessage,
		Timeout:       cfg.Timeout,
	}
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	Stream           bool      `json:"stream"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
}

// Completion 补全结果
type Completion struct {
	Text       string
	Model      string
	StatusCode int
	Duration   time.Duration
}

// Client LM Studio 兼容的 Chat 客户端
type Client struct {
	url        string
	keyMu      sync.RWMutex
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建 LLM 客户端，超时由每次调用的 Options 控制
func NewClient(cfg *config.LLMConfig) *Client {
	url := cfg.URL
	if url == "" {
		url = "http://localhost:1234/v1/chat/completions"
	}
	return &Client{
		url:        url,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("llm", "client"),
	}
}

// SetAPIKey 更新 API Key
func (c *Client) SetAPIKey(key string) {
	c.keyMu.Lock()
	c.apiKey = key
	c.keyMu.Unlock()
}

// Generate 发送补全请求，返回分类后的错误
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	c.logger.Debug("Sending completion request",
		"url", c.url,
		"model", opts.Model,
		"temperature", opts.Temperature,
		"max_tokens", opts.MaxTokens,
	)

	start := time.Now()
	resp, err := c.post(ctx, buildRequest(prompt, opts, false))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	result := &Completion{
		Model:      opts.Model,
		StatusCode: resp.StatusCode,
	}

	body, err := readResponseBody(resp)
	result.Duration = time.Since(start)
	if err != nil {
		return result, classifyTransportError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Model API returned error",
			"status_code", resp.StatusCode,
			"response_body", truncate(body, 500),
		)
		return result, &StatusError{Code: resp.StatusCode, Body: body}
	}

	var envelope map[string]any
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		c.logger.Warn("Failed to decode model response", "error", err)
		return result, ErrInvalidJSON
	}

	text, err := ExtractContent(envelope)
	if err != nil {
		return result, err
	}
	result.Text = text

	c.logger.Debug("Completion received",
		"model", opts.Model,
		"duration", result.Duration,
	)
	return result, nil
}

// Complete 发送补全请求，失败时返回以 "Error:" 开头的可读文本
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) string {
	result, err := c.Generate(ctx, prompt, opts)
	if err != nil {
		return ErrorText(err)
	}
	return result.Text
}

// ListModels 列出模型服务上可用的模型
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(c.url), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponseBody(resp)
		return nil, &StatusError{Code: resp.StatusCode, Body: body}
	}

	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ErrInvalidJSON
	}

	models := make([]string, 0, len(payload.Data))
	for _, m := range payload.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// post 发送 JSON 请求
func (c *Client) post(ctx context.Context, reqBody ChatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Model request failed",
			"url", c.url,
			"error", err,
		)
		return nil, classifyTransportError(ctx, err)
	}
	return resp, nil
}

func (c *Client) setAuth(req *http.Request) {
	c.keyMu.RLock()
	key := c.apiKey
	c.keyMu.RUnlock()
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

// buildRequest 构造 system + user 两条消息的请求体
func buildRequest(prompt string, opts Options, stream bool) ChatRequest {
	system := opts.SystemMessage
	if system == "" {
		system = "You are a helpful assistant."
	}
	return ChatRequest{
		Model: opts.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:      opts.Temperature,
		MaxTokens:        opts.MaxTokens,
		Stream:           stream,
		TopP:             opts.TopP,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
	}
}

// classifyTransportError 区分超时与连接失败
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ErrConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ErrConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrConnection
	}
	return err
}

// modelsURL 由补全地址推导模型列表地址
func modelsURL(chatURL string) string {
	base := strings.TrimSuffix(chatURL, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base + "/models"
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// readResponseBody 读取响应体
func readResponseBody(resp *http.Response) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
