//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/nymav/drax-tbs/internal/application"
	"github.com/nymav/drax-tbs/internal/infrastructure"
	"github.com/nymav/drax-tbs/internal/interfaces"
	"github.com/nymav/drax-tbs/internal/interfaces/cli"
)

// InitializeAll 初始化守护进程（HTTP + MCP + 后台摄取）
func InitializeAll() (*App, func(), error) {
	wire.Build(
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		NewApp,
	)
	return nil, nil, nil
}

// InitializeCLI 初始化命令行所需的服务，不启动任何监听
func InitializeCLI() (*cli.Services, func(), error) {
	wire.Build(
		infrastructure.ProviderSet,
		application.ProviderSet,
		cli.ProviderSet,
	)
	return nil, nil, nil
}
