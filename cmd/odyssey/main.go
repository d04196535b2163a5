package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/ledger/cmd/odyssey/cli"
	"github.com/odyssey-erp/ledger/internal/app"
	"github.com/odyssey-erp/ledger/internal/observability"
	"github.com/odyssey-erp/ledger/internal/platform/cache"
	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/jobs"
	"github.com/odyssey-erp/ledger/migrations"
)

const usage = `usage:
  odyssey [serve]                                   run the HTTP API
  odyssey migrate                                   apply pending migrations
  odyssey trial-balance --org N [--as-of DATE] [--json]
  odyssey jobs trigger <task> [--org N] | jobs stats`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	os.Exit(run(ctx, cmd, args, cfg, logger))
}

func run(ctx context.Context, cmd string, args []string, cfg *app.Config, logger *slog.Logger) int {
	switch cmd {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		applied, err := db.Migrate(ctx, pool, migrations.FS)
		if err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("migrations applied", slog.Any("versions", applied))
		return 0
	case "trial-balance":
		opts, err := cli.ParseTrialBalanceArgs(args, os.Stderr)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "trial-balance: %v\n", err)
			return 1
		}
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		svc := app.NewServices(cfg, pool, nil, logger)
		return cli.RunTrialBalance(ctx, svc.Reports, opts)
	case "jobs":
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		return jobsCLI.Run(ctx, args, os.Stdout, os.Stderr)
	default:
		_, _ = fmt.Fprintln(os.Stderr, usage)
		return 1
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	handler, inspector := buildRouter(cfg, logger, pool, redisClient)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func buildRouter(cfg *app.Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, *asynq.Inspector) {
	services := app.NewServices(cfg, pool, redisClient, logger)
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})

	params := app.NewHandlers(logger, services)
	params.Config = cfg
	params.Metrics = observability.NewMetrics()
	params.JobHandler = jobs.NewHandler(inspector, logger)
	return app.NewRouter(params), inspector
}
