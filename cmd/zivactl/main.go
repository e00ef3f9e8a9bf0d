package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/pkg/config"
	"github.com/Checker-Finance/ziva-sdk/pkg/logger"
	"github.com/Checker-Finance/ziva-sdk/pkg/utils"
	"github.com/Checker-Finance/ziva-sdk/pkg/ziva"
)

const usage = `usage: zivactl <command> [flags]

commands:
  login         exchange the special token for an access token
  create-user   register an application user
  set-user      attach a data-source token to the stored user
  delete-user   delete the stored user and clear credentials
  refresh       request a new access token
  get           fetch resource records
  post          insert or update resource records
  credentials   print the stored credentials (masked)
  serve         run the status server (/healthz, /metrics, /credentials)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	os.Exit(start(os.Args[1], os.Args[2:]))
}

// start runs cmd and returns the process exit code.
func start(cmd string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.L()

	if cfg.CacheBackend == config.CachePostgres {
		logg.Info("zivactl.cache_dsn", zap.String("dsn", utils.MaskDSN(cfg.DatabaseURL)))
	}

	client, err := ziva.NewFromConfig(ctx, cfg, logg)
	if err != nil {
		logg.Error("zivactl.init_failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Warn("zivactl.close_failed", zap.Error(err))
		}
	}()

	return run(ctx, cfg, client, logg, cmd, args)
}

func run(ctx context.Context, cfg *config.Config, client *ziva.Client, logg *zap.Logger, cmd string, args []string) int {
	var err error
	switch cmd {
	case "login":
		err = cmdLogin(ctx, client, args)
	case "create-user":
		err = cmdCreateUser(ctx, client, args)
	case "set-user":
		err = cmdSetUser(ctx, client, args)
	case "delete-user":
		err = cmdDeleteUser(ctx, client, args)
	case "refresh":
		err = cmdRefresh(ctx, client, args)
	case "get":
		err = cmdGet(ctx, client, args)
	case "post":
		err = cmdPost(ctx, client, args)
	case "credentials":
		fmt.Println(client.DebugString(ctx))
	case "serve":
		err = serve(ctx, cfg, client, logg)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	var failed *requestError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &failed):
		fmt.Fprintf(os.Stderr, "%d %s\n", failed.resp.StatusCode, failed.resp.Body)
		return 1
	default:
		logg.Error("zivactl.command_failed", zap.String("command", cmd), zap.Error(err))
		return 1
	}
}
