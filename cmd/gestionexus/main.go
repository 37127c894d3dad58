package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestionexus/gestionexus/internal/app"
	"github.com/gestionexus/gestionexus/internal/audit"
	"github.com/gestionexus/gestionexus/internal/catalog"
	"github.com/gestionexus/gestionexus/internal/insights"
	"github.com/gestionexus/gestionexus/internal/layaway"
	"github.com/gestionexus/gestionexus/internal/notifications"
	"github.com/gestionexus/gestionexus/internal/observability"
	"github.com/gestionexus/gestionexus/internal/platform/cache"
	"github.com/gestionexus/gestionexus/internal/platform/db"
	"github.com/gestionexus/gestionexus/internal/shared"
	"github.com/gestionexus/gestionexus/jobs"
)

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

	pool, err := db.NewPool(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, insights served uncached", slog.Any("error", err))
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

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	insightsCache := insights.NewCache(redisClient, cfg.InsightsCacheTTL)
	if err := insightsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	insightsRepo := insights.NewRepository(pool)
	insightsService := insights.NewService(insightsRepo, insightsCache)
	insightsHandler := insights.NewHandler(insightsService, logger)

	layawayRepo := layaway.NewRepository(pool)
	layawayService := layaway.NewService(layawayRepo, auditLogger, idempotencyStore, insightsCache, logger)
	layawayHandler := layaway.NewHandler(logger, layawayService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, auditLogger, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, cfg.LowStockThreshold, cfg.DueSoonDays, logger)
	notificationsHandler := notifications.NewHandler(notificationsService, logger)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		LayawayHandler:       layawayHandler,
		CatalogHandler:       catalogHandler,
		AuditHandler:         auditHandler,
		NotificationsHandler: notificationsHandler,
		InsightsHandler:      insightsHandler,
		JobsHandler:          jobsHandler,
		Pool:                 pool,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

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
	}
}
