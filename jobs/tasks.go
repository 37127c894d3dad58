package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDeadlineSweep marks expired active plans as overdue.
	TaskDeadlineSweep = "layaway:deadline_sweep"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// IdempotencyCleanupPayload bounds the cleanup to keys older than the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewDeadlineSweepTask constructs the sweep task. It carries no payload; the
// sweep is a single idempotent UPDATE.
func NewDeadlineSweepTask() *asynq.Task {
	return asynq.NewTask(TaskDeadlineSweep, nil)
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
