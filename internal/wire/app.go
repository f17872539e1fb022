package wire

import (
	"context"
	"log/slog"
	"net"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	"github.com/nymav/drax-tbs/internal/domain/events"
	applog "github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/infrastructure/watcher"
	"github.com/nymav/drax-tbs/internal/infrastructure/websocket"
	"github.com/nymav/drax-tbs/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	wsHub      *websocket.Hub
	eventBus   events.EventBus
	scheduler  *appRAG.IngestScheduler
	// inboxWatcher 未配置收件箱目录时为 nil
	inboxWatcher  *watcher.InboxWatcher
	inboxConsumer *appRAG.InboxConsumer
	initializer   *appRAG.Initializer
	logger        *slog.Logger

	unsubscribeHub func()
	cancelWarmup   context.CancelFunc
	serveErr       chan error
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	eventBus events.EventBus,
	scheduler *appRAG.IngestScheduler,
	inboxWatcher *watcher.InboxWatcher,
	inboxConsumer *appRAG.InboxConsumer,
	initializer *appRAG.Initializer,
) *App {
	return &App{
		HTTPServer:    httpServer,
		MCPServer:     mcpServer,
		wsHub:         wsHub,
		eventBus:      eventBus,
		scheduler:     scheduler,
		inboxWatcher:  inboxWatcher,
		inboxConsumer: inboxConsumer,
		initializer:   initializer,
		logger:        applog.NewModuleLogger("app", "main"),
		serveErr:      make(chan error, 1),
	}
}

// Start 启动所有服务
// listener 为单例锁拿到的端口，可为 nil
func (a *App) Start(listener net.Listener) error {
	a.logger.Info("Starting drax-tbs application")

	// 模型设置与连通性检查在后台进行，不阻塞启动
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelWarmup = cancel
	go a.initializer.Warmup(ctx)

	// 摄取进度推送给 WebSocket 订阅者
	a.unsubscribeHub = a.eventBus.Subscribe(events.IngestionProgress, a.wsHub)

	a.scheduler.StartWorkers()

	// 消费者先订阅，收件箱启动扫描发布的事件才不会丢
	if a.inboxWatcher != nil {
		a.inboxConsumer.Start()
		if err := a.inboxWatcher.Start(); err != nil {
			a.logger.Error("Failed to start inbox watcher",
				"error", err,
			)
		} else {
			a.logger.Info("Inbox watcher started")
		}
	}

	go func() {
		if err := a.HTTPServer.Start(listener); err != nil {
			a.logger.Error("HTTP server stopped with error",
				"error", err,
			)
			a.serveErr <- err
		}
	}()

	a.logger.Info("drax-tbs application started")
	return nil
}

// ServeErr HTTP 服务异常退出时收到错误
func (a *App) ServeErr() <-chan error {
	return a.serveErr
}

// Stop 按启动的逆序停止服务
// 数据库、向量索引、事件总线等资源由 InitializeAll 返回的 cleanup 释放
func (a *App) Stop() error {
	a.logger.Info("Stopping drax-tbs application")

	if a.cancelWarmup != nil {
		a.cancelWarmup()
	}

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
	}

	if a.inboxWatcher != nil {
		a.inboxWatcher.Stop()
		a.inboxConsumer.Stop()
		a.logger.Info("Inbox watcher stopped")
	}

	a.scheduler.StopWorkers()

	if a.unsubscribeHub != nil {
		a.unsubscribeHub()
	}

	a.logger.Info("drax-tbs application stopped")
	return nil
}
