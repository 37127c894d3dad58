package catalog

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gestionexus/gestionexus/internal/shared"
)

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByReference(ctx context.Context, reference string) (Product, error)
	Create(ctx context.Context, input ProductInput) (Product, error)
	Update(ctx context.Context, id int64, input ProductInput) (Product, error)
	Deactivate(ctx context.Context, id int64) error
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles catalog business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListProducts returns products matching the filter.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// GetProductByReference returns a product by its reference code.
func (s *Service) GetProductByReference(ctx context.Context, reference string) (Product, error) {
	if reference == "" {
		return Product{}, shared.NewValidationError("reference", "reference is required")
	}
	return s.repo.GetByReference(ctx, reference)
}

// CreateProduct validates and inserts a product.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if err := validateProduct(input); err != nil {
		return Product{}, err
	}
	product, err := s.repo.Create(ctx, input)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, input, "catalog:create", product.ID)
	return product, nil
}

// UpdateProduct validates and updates a product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	if err := validateProduct(input); err != nil {
		return Product{}, err
	}
	product, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, input, "catalog:update", id)
	return product, nil
}

// DeactivateProduct soft-deletes a product.
func (s *Service) DeactivateProduct(ctx context.Context, id int64, actorID int64, actorName string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, ProductInput{ActorID: actorID, ActorName: actorName}, "catalog:deactivate", id)
	return nil
}

// LowStock lists active products under the threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	if threshold <= 0 {
		threshold = 3
	}
	return s.repo.ListLowStock(ctx, threshold)
}

func validateProduct(input ProductInput) error {
	fields := map[string]string{}
	if input.Name == "" {
		fields["name"] = "product name is required"
	}
	if input.Quantity < 0 {
		fields["quantity"] = "quantity must be zero or greater"
	}
	if input.Price < 0 {
		fields["price"] = "price must be zero or greater"
	}
	if input.Cost < 0 {
		fields["cost"] = "cost must be zero or greater"
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, input ProductInput, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:   input.ActorID,
		ActorName: input.ActorName,
		Action:    action,
		Entity:    "product",
		EntityID:  strconv.FormatInt(id, 10),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.Any("error", err), slog.String("action", action))
	}
}
