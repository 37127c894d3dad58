package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestionexus/gestionexus/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrDuplicateReference indicates the product reference is already taken.
var ErrDuplicateReference = errors.New("catalog: reference already in use")

const productColumns = `id, name, reference, description, quantity, price, cost, is_active, created_at, updated_at`

// List returns products matching the filter, name ascending.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
WHERE (name ILIKE '%' || $1 || '%' OR reference ILIKE '%' || $1 || '%')
  AND (is_active OR $2)
ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, filter.Search, filter.IncludeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Get returns a product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	return scanProduct(row)
}

// GetByReference returns a product by its unique reference code.
func (r *Repository) GetByReference(ctx context.Context, reference string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE reference=$1`, reference)
	return scanProduct(row)
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, input ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (name, reference, description, quantity, price, cost, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW()) RETURNING `+productColumns,
		input.Name, input.Reference, input.Description, input.Quantity, input.Price, input.Cost)
	product, err := scanProduct(row)
	if err != nil {
		return Product{}, mapConstraint(err)
	}
	return product, nil
}

// Update replaces the writable fields of a product.
func (r *Repository) Update(ctx context.Context, id int64, input ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET name=$2, reference=$3, description=$4, quantity=$5, price=$6, cost=$7, updated_at=NOW()
WHERE id=$1 RETURNING `+productColumns,
		id, input.Name, input.Reference, input.Description, input.Quantity, input.Price, input.Cost)
	product, err := scanProduct(row)
	if err != nil {
		return Product{}, mapConstraint(err)
	}
	return product, nil
}

// Deactivate soft-deletes a product so historical plans keep resolving it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListLowStock returns active products with stock below the threshold.
func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE quantity < $1 AND is_active ORDER BY quantity ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := []Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Reference, &p.Description, &p.Quantity, &p.Price, &p.Cost, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateReference
	}
	return err
}
