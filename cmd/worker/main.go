package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledger/internal/app"
	jobmetrics "github.com/odyssey-erp/ledger/internal/jobs"
	"github.com/odyssey-erp/ledger/internal/observability"
	"github.com/odyssey-erp/ledger/internal/platform/cache"
	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
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

	services := app.NewServices(cfg, pool, redisClient, logger)
	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	integrityJob := jobs.NewGLIntegrityJob(jobs.LedgerOrgs(pool), services.Reports, logger, jobMetrics)
	reconcileJob := jobs.NewInventoryReconcileJob(jobs.InventoryOrgs(pool), services.Inventory, logger, jobMetrics)

	integrityTask, err := jobs.NewOrgTask(jobs.TaskGLIntegrity, 0)
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	reconcileTask, err := jobs.NewOrgTask(jobs.TaskInventoryReconcile, 0)
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskInventoryReconcile, Handler: reconcileJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.GLIntegrityCron, Task: integrityTask},
			{Spec: cfg.InventoryReconcileCron, Task: reconcileTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Job metrics are scraped from the worker itself.
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() { _ = metricsServer.Close() }()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
