package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	applog "github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/interfaces/cli"
	"github.com/nymav/drax-tbs/internal/wire"
)

func main() {
	applog.Init(applog.NewCLIConfigFromEnv())

	services, cleanup, err := wire.InitializeCLI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cli.SetServices(services)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = cli.Execute(ctx)
	stop()
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}
