package layaway

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestionexus/gestionexus/internal/platform/db"
)

// Repository persists layaway plans in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service. All
// methods run on the same database transaction, so the stock check, the stock
// mutation and the plan rows commit or roll back together.
type TxRepository interface {
	GetPlanForUpdate(ctx context.Context, id int64) (Plan, error)
	GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error)
	AdjustProductStock(ctx context.Context, productID int64, delta int) error
	InsertPlan(ctx context.Context, plan Plan) (Plan, error)
	InsertDetail(ctx context.Context, detail PlanDetail) error
	UpdatePlan(ctx context.Context, id int64, downPayment, balanceDue float64, status PlanStatus) error
	ListDetails(ctx context.Context, planID int64) ([]PlanDetail, error)
	DeleteDetails(ctx context.Context, planID int64) error
	DeletePlan(ctx context.Context, planID int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("layaway repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// SweepOverdue flips every active plan whose deadline has passed to overdue.
// It returns the number of plans flipped.
func (r *Repository) SweepOverdue(ctx context.Context) (int64, error) {
	if r == nil {
		return 0, errors.New("layaway repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE layaway_plans SET status='overdue' WHERE deadline < CURRENT_DATE AND status='active'`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const planColumns = `id, customer_name, customer_id_doc, customer_contact, total_value, down_payment, balance_due, deadline, status, created_at`

// List returns plans matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Plan, error) {
	if r == nil {
		return nil, errors.New("layaway repository not initialised")
	}
	query := `SELECT ` + planColumns + ` FROM layaway_plans
WHERE (customer_name ILIKE '%' || $1 || '%' OR customer_id_doc ILIKE '%' || $1 || '%')
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC`
	status := filter.Status
	if status == "all" {
		status = ""
	}
	rows, err := r.pool.Query(ctx, query, filter.Search, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plans := []Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// Get returns a single plan by id.
func (r *Repository) Get(ctx context.Context, id int64) (Plan, error) {
	if r == nil {
		return Plan{}, errors.New("layaway repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM layaway_plans WHERE id=$1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	return plan, nil
}

// GetLines resolves the plan's detail rows against the current catalog. The
// join deliberately reads the product's present price.
func (r *Repository) GetLines(ctx context.Context, planID int64) ([]PlanLine, error) {
	if r == nil {
		return nil, errors.New("layaway repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT d.product_id, p.name, d.quantity, p.price
FROM layaway_plan_details d
JOIN products p ON p.id = d.product_id
WHERE d.layaway_plan_id = $1
ORDER BY d.product_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []PlanLine{}
	for rows.Next() {
		var line PlanLine
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) GetPlanForUpdate(ctx context.Context, id int64) (Plan, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+planColumns+` FROM layaway_plans WHERE id=$1 FOR UPDATE`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	return plan, nil
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	var stock ProductStock
	err := r.tx.QueryRow(ctx, `SELECT id, name, quantity FROM products WHERE id=$1 AND is_active FOR UPDATE`, productID).
		Scan(&stock.ID, &stock.Name, &stock.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductStock{}, ErrProductNotFound
		}
		return ProductStock{}, err
	}
	return stock, nil
}

func (r *txRepository) AdjustProductStock(ctx context.Context, productID int64, delta int) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = NOW() WHERE id=$1`, productID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) InsertPlan(ctx context.Context, plan Plan) (Plan, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO layaway_plans (customer_name, customer_id_doc, customer_contact, total_value, down_payment, balance_due, deadline, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id, created_at`,
		plan.CustomerName, plan.CustomerIDDoc, plan.CustomerContact,
		plan.TotalValue, plan.DownPayment, plan.BalanceDue, plan.Deadline, plan.Status).Scan(&plan.ID, &plan.CreatedAt)
	return plan, err
}

func (r *txRepository) InsertDetail(ctx context.Context, detail PlanDetail) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO layaway_plan_details (layaway_plan_id, product_id, quantity) VALUES ($1, $2, $3)`,
		detail.PlanID, detail.ProductID, detail.Quantity)
	return err
}

func (r *txRepository) UpdatePlan(ctx context.Context, id int64, downPayment, balanceDue float64, status PlanStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE layaway_plans SET down_payment=$2, balance_due=$3, status=$4 WHERE id=$1`,
		id, downPayment, balanceDue, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *txRepository) ListDetails(ctx context.Context, planID int64) ([]PlanDetail, error) {
	rows, err := r.tx.Query(ctx, `SELECT layaway_plan_id, product_id, quantity FROM layaway_plan_details WHERE layaway_plan_id=$1`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := []PlanDetail{}
	for rows.Next() {
		var d PlanDetail
		if err := rows.Scan(&d.PlanID, &d.ProductID, &d.Quantity); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (r *txRepository) DeleteDetails(ctx context.Context, planID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM layaway_plan_details WHERE layaway_plan_id=$1`, planID)
	return err
}

func (r *txRepository) DeletePlan(ctx context.Context, planID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM layaway_plans WHERE id=$1`, planID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (Plan, error) {
	var plan Plan
	err := row.Scan(&plan.ID, &plan.CustomerName, &plan.CustomerIDDoc, &plan.CustomerContact,
		&plan.TotalValue, &plan.DownPayment, &plan.BalanceDue, &plan.Deadline, &plan.Status, &plan.CreatedAt)
	return plan, err
}
