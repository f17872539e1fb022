package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	applog "github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/infrastructure/singleton"
	"github.com/nymav/drax-tbs/internal/wire"
)

func main() {
	// 初始化日志系统
	applog.Init(nil)

	// 加载配置获取端口
	cfg := config.NewConfig()

	// 单例锁检查：端口由锁拿到的 listener 直接交给 HTTP 服务器
	listener, err := singleton.CheckAndLock(cfg.Server.HTTPPort)
	if errors.Is(err, singleton.ErrAlreadyRunning) {
		log.Println("检测到已有实例在运行，当前进程退出")
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("单例锁检查失败: %v", err)
	}

	app, cleanup, err := wire.InitializeAll()
	if err != nil {
		_ = listener.Close()
		applog.GetLogger().Error("Failed to initialize application",
			"error", err,
		)
		os.Exit(1)
	}

	if err := app.Start(listener); err != nil {
		applog.GetLogger().Error("Failed to start application",
			"error", err,
		)
		cleanup()
		os.Exit(1)
	}

	// 优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
	case err := <-app.ServeErr():
		applog.GetLogger().Error("HTTP server exited unexpectedly",
			"error", err,
		)
		exitCode = 1
	}

	applog.GetLogger().Info("Shutting down application...")
	if err := app.Stop(); err != nil {
		applog.GetLogger().Error("Error during application shutdown",
			"error", err,
		)
	}
	cleanup()
	applog.GetLogger().Info("Application stopped")
	os.Exit(exitCode)
}
