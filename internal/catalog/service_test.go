package catalog

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gestionexus/gestionexus/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	result := []Product{}
	for _, p := range r.products {
		if !p.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) GetByReference(ctx context.Context, reference string) (Product, error) {
	for _, p := range r.products {
		if p.Reference == reference {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, input ProductInput) (Product, error) {
	for _, p := range r.products {
		if input.Reference != "" && p.Reference == input.Reference {
			return Product{}, ErrDuplicateReference
		}
	}
	r.nextID++
	p := Product{
		ID:        r.nextID,
		Name:      input.Name,
		Reference: input.Reference,
		Quantity:  input.Quantity,
		Price:     input.Price,
		Cost:      input.Cost,
		IsActive:  true,
	}
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, input ProductInput) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	p.Name = input.Name
	p.Reference = input.Reference
	p.Quantity = input.Quantity
	p.Price = input.Price
	p.Cost = input.Cost
	r.products[id] = p
	return p, nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	p, ok := r.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	r.products[id] = p
	return nil
}

func (r *memoryRepo) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	result := []Product{}
	for _, p := range r.products {
		if p.IsActive && p.Quantity < threshold {
			result = append(result, p)
		}
	}
	return result, nil
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	_, err := svc.CreateProduct(context.Background(), ProductInput{Quantity: -1, Price: -2})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "name")
	require.Contains(t, validationErr.Fields, "quantity")
	require.Contains(t, validationErr.Fields, "price")
}

func TestCreateProductDuplicateReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Bag", Reference: "REF-1"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), ProductInput{Name: "Other bag", Reference: "REF-1"})
	require.ErrorIs(t, err, ErrDuplicateReference)
}

func TestDeactivateHidesFromListing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	p, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Bag", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateProduct(context.Background(), p.ID, 1, "admin"))

	products, err := svc.ListProducts(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Empty(t, products)

	products, err = svc.ListProducts(context.Background(), ListFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, products, 1)
}

func TestLowStockThreshold(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Scarce", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), ProductInput{Name: "Plenty", Quantity: 10})
	require.NoError(t, err)

	low, err := svc.LowStock(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Scarce", low[0].Name)

	// Zero threshold falls back to the default of 3.
	low, err = svc.LowStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
}
