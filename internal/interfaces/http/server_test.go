package http

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/websocket"
	"github.com/nymav/drax-tbs/internal/interfaces/http/handler"
	"github.com/nymav/drax-tbs/internal/interfaces/http/middleware"
	"github.com/nymav/drax-tbs/internal/interfaces/mcp"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Server.HTTPPort = "127.0.0.1:0"
	cfg.Server.MCPPort = ""

	hub := websocket.NewHub()
	t.Cleanup(hub.Close)

	return NewServer(
		cfg,
		handler.NewTextbookHandler(nil, nil),
		handler.NewChatHandler(nil),
		handler.NewSessionHandler(nil),
		handler.NewMemoryHandler(nil),
		handler.NewModelHandler(nil),
		handler.NewIngestProgressHandler(hub),
		mcp.NewServer(nil, nil, nil, nil),
	)
}

// TestNewServer_Routes 测试路由注册
func TestNewServer_Routes(t *testing.T) {
	s := newTestServer(t)

	registered := map[string]bool{}
	for _, r := range s.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /api/uploads",
		"POST /api/embed/:pdf_id",
		"GET /api/textbooks",
		"POST /api/chat",
		"POST /api/chat/stream",
		"GET /api/sessions/:id",
		"GET /api/memory/sessions",
		"GET /api/memory/:session/stats",
		"GET /api/memory/:session/search",
		"DELETE /api/memory/:session",
		"GET /api/settings/model",
		"POST /api/settings/model",
		"GET /api/models",
		"GET /api/models/stats",
		"GET /ws/ingest/:pdf_id",
		"GET /health",
		"GET /mcp/sse",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

// TestNewServer_Health 测试健康检查经过中间件
func TestNewServer_Health(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"status":"ok","service":"drax-tbs"}}`, w.Body.String())
}

// TestHTTPServer_StartStop 测试使用外部 listener 启动与停止
func TestHTTPServer_StartStop(t *testing.T) {
	s := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(listener) }()

	url := "http://" + listener.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var body map[string]interface{}
		return json.NewDecoder(resp.Body).Decode(&body) == nil && body["code"] == float64(0)
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
