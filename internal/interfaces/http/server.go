package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/interfaces/http/handler"
	"github.com/nymav/drax-tbs/internal/interfaces/http/middleware"
	"github.com/nymav/drax-tbs/internal/interfaces/mcp"
)

// shutdownTimeout Stop 等待在途请求的时间
const shutdownTimeout = 5 * time.Second

// HTTPServer HTTP 服务器
// 主端口提供 REST、WebSocket 与 /mcp/sse；配置了独立 MCP 端口时另起一个只挂 MCP 的服务
type HTTPServer struct {
	router    *gin.Engine
	httpPort  string
	mcpPort   string
	server    *http.Server
	mcpServer *http.Server
	logger    *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.Config,
	textbookHandler *handler.TextbookHandler,
	chatHandler *handler.ChatHandler,
	sessionHandler *handler.SessionHandler,
	memoryHandler *handler.MemoryHandler,
	modelHandler *handler.ModelHandler,
	ingestHandler *handler.IngestProgressHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.CORS(),
		middleware.EnsureUTF8Body(),
	)

	api := router.Group("/api")
	{
		// 教材
		api.POST("/uploads", textbookHandler.Upload)
		api.POST("/embed/:pdf_id", textbookHandler.Embed)
		api.GET("/textbooks", textbookHandler.List)

		// 问答
		api.POST("/chat", chatHandler.Ask)
		api.POST("/chat/stream", chatHandler.Stream)
		api.GET("/sessions/:id", sessionHandler.History)

		// 会话记忆
		memory := api.Group("/memory")
		{
			memory.GET("/sessions", memoryHandler.Sessions)
			memory.GET("/:session/stats", memoryHandler.Stats)
			memory.GET("/:session/search", memoryHandler.Search)
			memory.DELETE("/:session", memoryHandler.Clear)
		}

		// 模型
		api.GET("/settings/model", modelHandler.GetSettings)
		api.POST("/settings/model", modelHandler.UpdateSettings)
		api.GET("/models", modelHandler.ListModels)
		api.GET("/models/stats", modelHandler.Stats)
	}

	router.GET("/ws/ingest/:pdf_id", ingestHandler.Subscribe)
	router.GET("/health", handler.Health)

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	mcpPort := cfg.Server.MCPPort
	if mcpPort == cfg.Server.HTTPPort {
		mcpPort = ""
	}

	s := &HTTPServer{
		router:   router,
		httpPort: cfg.Server.HTTPPort,
		mcpPort:  mcpPort,
		logger:   log.NewModuleLogger("http", "server"),
	}
	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if mcpServer != nil && mcpPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/mcp/sse", mcpServer.GetHandler())
		s.mcpServer = &http.Server{
			Addr:              mcpPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Handler 返回路由，供测试与内嵌使用
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start 启动服务器，阻塞直到关闭
// listener 为 nil 时自行监听 httpPort；单例锁拿到的 listener 可直接传入
func (s *HTTPServer) Start(listener net.Listener) error {
	if listener == nil {
		l, err := net.Listen("tcp", s.httpPort)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.httpPort, err)
		}
		listener = l
	}

	if s.mcpServer != nil {
		s.startMCP()
	}

	s.logger.Info("HTTP server starting",
		"addr", listener.Addr().String(),
	)

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startMCP 在独立端口上提供 MCP，失败不影响主服务
func (s *HTTPServer) startMCP() {
	go func() {
		s.logger.Info("MCP server starting", "port", s.mcpPort)
		if err := s.mcpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("MCP server stopped", "port", s.mcpPort, "error", err)
		}
	}()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	var errs []error
	if s.mcpServer != nil {
		if err := s.mcpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}
