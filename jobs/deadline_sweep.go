package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gestionexus/gestionexus/internal/jobs"
	"github.com/gestionexus/gestionexus/internal/shared"
)

// OverdueSweeper flips expired active plans to overdue.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// CacheBumper invalidates derived-data caches after the sweep changes rows.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Sweeper runs the periodic deadline sweep. The same UPDATE runs lazily on
// every plan listing; the job only guarantees convergence without traffic.
type Sweeper struct {
	repo    OverdueSweeper
	cache   CacheBumper
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewSweeper constructs the sweep handler. cache and metrics may be nil.
func NewSweeper(repo OverdueSweeper, cache CacheBumper, metrics *jobmetrics.Metrics, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// HandleDeadlineSweep processes TaskDeadlineSweep tasks.
func (s *Sweeper) HandleDeadlineSweep(ctx context.Context, _ *asynq.Task) error {
	tracker := s.metrics.Track(TaskDeadlineSweep)
	flipped, err := s.repo.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("deadline sweep failed", slog.Any("error", err))
		return tracker.End(err)
	}
	if flipped > 0 {
		s.metrics.AddFlippedPlans(flipped)
		s.logger.Info("deadline sweep flipped plans", slog.Int64("count", flipped))
		if s.cache != nil {
			if err := s.cache.Bump(ctx); err != nil {
				s.logger.Warn("insights cache bump", slog.Any("error", err))
			}
		}
	}
	return tracker.End(nil)
}

// CleanupHandler prunes expired idempotency keys.
type CleanupHandler struct {
	store     *shared.IdempotencyStore
	retention time.Duration
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
}

// NewCleanupHandler constructs the cleanup handler.
func NewCleanupHandler(store *shared.IdempotencyStore, retention time.Duration, metrics *jobmetrics.Metrics, logger *slog.Logger) *CleanupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &CleanupHandler{store: store, retention: retention, metrics: metrics, logger: logger}
}

// HandleIdempotencyCleanup processes TaskIdempotencyCleanup tasks.
func (h *CleanupHandler) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskIdempotencyCleanup)
	retention := h.retention
	if len(t.Payload()) > 0 {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
	}
	if err := h.store.Cleanup(ctx, retention); err != nil {
		h.logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
