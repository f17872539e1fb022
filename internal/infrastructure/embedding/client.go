package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

const (
	// 单次请求的文本上限
	maxBatchSize       = 2048
	maxRetriesPerBatch = 3
)

// Client Embedding API 客户端（OpenAI 兼容协议）
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	httpClient *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient 创建 Embedding 客户端
func NewClient(cfg *config.EmbeddingConfig) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		retryDelay: time.Second,
		logger:     log.NewModuleLogger("embedding", "client"),
	}
}

// Model 当前使用的 embedding 模型名
func (c *Client) Model() string {
	return c.model
}

// buildEmbeddingURL 构建 Embedding API URL
// 支持多种输入格式，智能拼接 /v1/embeddings 路径
func buildEmbeddingURL(baseURL string) string {
	if strings.Contains(baseURL, "/v1/embeddings") {
		return baseURL
	}
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL + "/embeddings"
	}
	if strings.HasSuffix(baseURL, "/v1/") {
		return baseURL + "embeddings"
	}
	return fmt.Sprintf("%s/v1/embeddings", baseURL)
}

// EmbeddingRequest Embedding 请求
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse Embedding 响应
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed 批量向量化文本，返回的向量与输入一一对应
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	allVectors := make([][]float32, 0, len(texts))
	totalBatches := (len(texts) + c.batchSize - 1) / c.batchSize

	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchNum := i/c.batchSize + 1

		c.logger.Debug("Processing batch",
			"batch", batchNum,
			"total_batches", totalBatches,
			"batch_size", end-i,
		)

		vectors, err := c.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			c.logger.Error("Failed to embed batch",
				"batch", batchNum,
				"error", err,
			)
			return nil, fmt.Errorf("failed to embed batch %d: %w", batchNum, err)
		}
		allVectors = append(allVectors, vectors...)
	}

	if len(allVectors) != len(texts) {
		return nil, &rag.EmbeddingMismatchError{Expected: len(texts), Got: len(allVectors)}
	}

	return allVectors, nil
}

// embedWithRetry 带重试的单批次请求
func (c *Client) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetriesPerBatch; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		vectors, retryable, err := c.embedOnce(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("Embedding request failed, retrying",
			"attempt", attempt+1,
			"max_retries", maxRetriesPerBatch,
			"error", err,
		)
	}
	return nil, lastErr
}

// embedOnce 发送单次请求，第二个返回值表示错误是否可重试
func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limiter: %w", err)
	}

	jsonData, err := json.Marshal(EmbeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := buildEmbeddingURL(c.baseURL)
	c.logger.Debug("Sending embedding request",
		"url", url,
		"batch_size", len(texts),
		"model", c.model,
		"api_key", maskKey(c.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddingResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingResp.Data) != len(texts) {
		return nil, false, &rag.EmbeddingMismatchError{Expected: len(texts), Got: len(embeddingResp.Data)}
	}

	// 按 index 排序还原输入顺序
	vectors := make([][]float32, len(texts))
	for _, data := range embeddingResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, false, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, false, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	return vectors, false, nil
}

// Dimension 获取向量维度（通过测试请求）
func (c *Client) Dimension(ctx context.Context) (int, error) {
	vectors, err := c.Embed(ctx, []string{"test"})
	if err != nil {
		return 0, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("invalid embedding response")
	}
	return len(vectors[0]), nil
}

// TestConnection 测试连接
func (c *Client) TestConnection(ctx context.Context) error {
	c.logger.Info("Testing embedding API connection",
		"base_url", c.baseURL,
		"model", c.model,
	)

	dimension, err := c.Dimension(ctx)
	if err != nil {
		c.logger.Error("Embedding API connection test failed",
			"error", err,
		)
		return err
	}

	c.logger.Info("Embedding API connection test successful",
		"vector_dimension", dimension,
	)
	return nil
}

// maskKey API Key 脱敏
func maskKey(key string) string {
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "***"
}
