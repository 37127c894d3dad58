package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]ProductLow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, quantity
		FROM products
		WHERE is_active AND quantity < $1
		ORDER BY quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var out []ProductLow
	for rows.Next() {
		var p ProductLow
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ListOverduePlans(ctx context.Context) ([]PlanDue, error) {
	return r.listPlans(ctx, `
		SELECT id, customer_name, deadline
		FROM layaway_plans
		WHERE status = 'overdue'
		   OR (status = 'active' AND deadline < CURRENT_DATE)
		ORDER BY deadline ASC`)
}

func (r *Repository) ListPlansDueWithin(ctx context.Context, days int) ([]PlanDue, error) {
	return r.listPlans(ctx, `
		SELECT id, customer_name, deadline
		FROM layaway_plans
		WHERE status = 'active'
		  AND deadline >= CURRENT_DATE
		  AND deadline < CURRENT_DATE + $1 * INTERVAL '1 day'
		ORDER BY deadline ASC`, days)
}

func (r *Repository) listPlans(ctx context.Context, query string, args ...any) ([]PlanDue, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []PlanDue
	for rows.Next() {
		var p PlanDue
		if err := rows.Scan(&p.ID, &p.CustomerName, &p.Deadline); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
