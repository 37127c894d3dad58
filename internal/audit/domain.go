package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one audit log record as exposed to the timeline.
type Entry struct {
	ID        int64          `json:"id"`
	EventID   uuid.UUID      `json:"event_id"`
	ActorID   int64          `json:"actor_id"`
	ActorName string         `json:"actor_name"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	At        time.Time      `json:"occurred_at"`
}

// TimelineFilters narrows the audit listing.
type TimelineFilters struct {
	// Search matches actor name and action text, case-insensitive.
	Search   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}
