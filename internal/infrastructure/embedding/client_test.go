package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/config"
)

// fakeEmbeddingServer 返回每个输入对应的向量（逆序 index，验证排序还原）
func fakeEmbeddingServer(t *testing.T, dropLast bool, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		n := len(req.Input)
		if dropLast {
			n--
		}
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, n)
		for i := n - 1; i >= 0; i-- {
			data = append(data, item{Embedding: []float32{float32(len(req.Input[i])), 1}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "model": req.Model})
	}))
}

func newTestClient(url string, batch int) *Client {
	c := NewClient(&config.EmbeddingConfig{
		URL:       url + "/v1",
		Model:     "test-model",
		BatchSize: batch,
		Timeout:   5 * time.Second,
	})
	c.retryDelay = time.Millisecond
	return c
}

// TestBuildEmbeddingURL 测试 URL 拼接
func TestBuildEmbeddingURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://h:1234", "http://h:1234/v1/embeddings"},
		{"http://h:1234/v1", "http://h:1234/v1/embeddings"},
		{"http://h:1234/v1/", "http://h:1234/v1/embeddings"},
		{"http://h:1234/v1/embeddings", "http://h:1234/v1/embeddings"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, buildEmbeddingURL(tt.in))
	}
}

// TestClient_Embed 测试批量向量化与顺序还原
func TestClient_Embed(t *testing.T) {
	var calls int32
	srv := fakeEmbeddingServer(t, false, &calls)
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vectors, err := c.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
	// 5 条文本，每批 2 条，共 3 次请求
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestClient_Embed_Empty 测试空输入
func TestClient_Embed_Empty(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", 2)
	vectors, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

// TestClient_Embed_Mismatch 测试向量数量不一致
func TestClient_Embed_Mismatch(t *testing.T) {
	srv := fakeEmbeddingServer(t, true, nil)
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	_, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)

	var mismatch *rag.EmbeddingMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)
}

// TestClient_Embed_RetryOnServerError 测试 5xx 重试
func TestClient_Embed_RetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.5],"index":0}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	vectors, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vectors[0])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestClient_Embed_NoRetryOnClientError 测试 4xx 不重试
func TestClient_Embed_NoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	_, err := c.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestClient_Dimension 测试维度探测
func TestClient_Dimension(t *testing.T) {
	srv := fakeEmbeddingServer(t, false, nil)
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	dim, err := c.Dimension(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	assert.NoError(t, c.TestConnection(context.Background()))
}

// TestMaskKey 测试 Key 脱敏
func TestMaskKey(t *testing.T) {
	assert.Equal(t, "***", maskKey("short"))
	assert.Equal(t, "sk-1...cdef", maskKey("sk-1234567890abcdef"))
}
