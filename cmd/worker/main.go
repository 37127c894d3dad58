package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gestionexus/gestionexus/internal/app"
	"github.com/gestionexus/gestionexus/internal/insights"
	jobmetrics "github.com/gestionexus/gestionexus/internal/jobs"
	"github.com/gestionexus/gestionexus/internal/layaway"
	"github.com/gestionexus/gestionexus/internal/platform/cache"
	"github.com/gestionexus/gestionexus/internal/platform/db"
	"github.com/gestionexus/gestionexus/internal/shared"
	"github.com/gestionexus/gestionexus/jobs"
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

	pool, err := db.NewPool(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, sweeping without cache bumps", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	insightsCache := insights.NewCache(redisClient, cfg.InsightsCacheTTL)
	layawayRepo := layaway.NewRepository(pool)
	sweeper := jobs.NewSweeper(layawayRepo, insightsCache, metrics, logger)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleanup := jobs.NewCleanupHandler(idempotencyStore, cfg.IdempotencyRetention, metrics, logger)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDeadlineSweep, Handler: sweeper.HandleDeadlineSweep},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanup.HandleIdempotencyCleanup},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every " + cfg.SweepInterval.String(), Task: jobs.NewDeadlineSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
