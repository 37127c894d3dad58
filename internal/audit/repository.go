package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs for the timeline.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListParams is the repository-level query window.
type ListParams struct {
	Search string
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}

// List returns matching entries newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Entry, error) {
	if r == nil {
		return nil, errors.New("audit repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, actor_id, actor_name, action, entity, entity_id, meta, occurred_at
FROM audit_logs
WHERE (actor_name ILIKE '%' || $1 || '%' OR action ILIKE '%' || $1 || '%')
  AND occurred_at BETWEEN COALESCE(NULLIF($2, '0001-01-01'::timestamptz), '-infinity') AND COALESCE(NULLIF($3, '0001-01-01'::timestamptz), 'infinity')
ORDER BY occurred_at DESC, id DESC
OFFSET $4 LIMIT $5`, params.Search, params.From, params.To, params.Offset, params.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.ActorID, &entry.ActorName, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of matching entries.
func (r *Repository) Count(ctx context.Context, params ListParams) (int, error) {
	if r == nil {
		return 0, errors.New("audit repository not initialised")
	}
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs
WHERE (actor_name ILIKE '%' || $1 || '%' OR action ILIKE '%' || $1 || '%')
  AND occurred_at BETWEEN COALESCE(NULLIF($2, '0001-01-01'::timestamptz), '-infinity') AND COALESCE(NULLIF($3, '0001-01-01'::timestamptz), 'infinity')`,
		params.Search, params.From, params.To).Scan(&total)
	return total, err
}
