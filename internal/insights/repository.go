package insights

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

// windowClause builds the created_at filter shared by the plan aggregations.
// $1/$2 stay in the statement even when empty so the plans are cacheable.
const windowClause = `($1 = '' OR created_at >= $1::date) AND ($2 = '' OR created_at < $2::date + INTERVAL '1 day')`

func (r *Repository) StatusBreakdown(ctx context.Context, w Window) ([]StatusBreakdown, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(balance_due), 0), COALESCE(SUM(down_payment), 0)
		FROM layaway_plans
		WHERE `+windowClause+`
		GROUP BY status
		ORDER BY status`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	defer rows.Close()

	var out []StatusBreakdown
	for rows.Next() {
		var b StatusBreakdown
		if err := rows.Scan(&b.Status, &b.Plans, &b.Outstanding, &b.Collected); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) CollectedDaily(ctx context.Context, w Window) ([]DailyCollected, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(created_at::date, 'YYYY-MM-DD'), COALESCE(SUM(down_payment), 0)
		FROM layaway_plans
		WHERE `+windowClause+`
		GROUP BY created_at::date
		ORDER BY created_at::date`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("collected daily: %w", err)
	}
	defer rows.Close()

	var out []DailyCollected
	for rows.Next() {
		var d DailyCollected
		if err := rows.Scan(&d.Day, &d.Collected); err != nil {
			return nil, fmt.Errorf("scan collected daily: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) TopReserved(ctx context.Context, limit int) ([]ReservedProduct, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.product_id, p.name, SUM(d.quantity)
		FROM layaway_plan_details d
		JOIN layaway_plans l ON l.id = d.layaway_plan_id
		JOIN products p ON p.id = d.product_id
		WHERE l.status <> 'completed'
		GROUP BY d.product_id, p.name
		ORDER BY SUM(d.quantity) DESC, p.name ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top reserved: %w", err)
	}
	defer rows.Close()

	var out []ReservedProduct
	for rows.Next() {
		var p ReservedProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Units); err != nil {
			return nil, fmt.Errorf("scan top reserved: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) InventoryValue(ctx context.Context) (InventoryValue, error) {
	var v InventoryValue
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0),
		       COALESCE(SUM(quantity * cost), 0),
		       COALESCE(SUM(quantity * price), 0),
		       COUNT(*)
		FROM products
		WHERE is_active`).Scan(&v.Units, &v.AtCost, &v.AtPrice, &v.Products)
	if err != nil {
		return InventoryValue{}, fmt.Errorf("inventory value: %w", err)
	}
	return v, nil
}
