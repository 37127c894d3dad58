package layaway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gestionexus/gestionexus/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	SweepOverdue(ctx context.Context) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]Plan, error)
	Get(ctx context.Context, id int64) (Plan, error)
	GetLines(ctx context.Context, planID int64) ([]PlanLine, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps derived-data caches after ledger mutations.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service owns the layaway plan lifecycle: creation with atomic stock
// reservation, payment application, status derivation and cancellation with
// stock release.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       CacheInvalidator
	logger      *slog.Logger
}

// NewService builds Service. audit, idempotency and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, cache: cache, logger: logger}
}

// ListPlans sweeps expired plans to overdue, then lists plans matching the
// filter, newest first. Overdue status is only guaranteed accurate right
// after this call; the worker's periodic sweep covers quiet periods.
func (s *Service) ListPlans(ctx context.Context, filter ListFilter) ([]Plan, error) {
	if filter.Status != "" && filter.Status != "all" && !KnownStatus(PlanStatus(filter.Status)) {
		return nil, shared.NewValidationError("status", "unknown status filter")
	}
	flipped, err := s.repo.SweepOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("layaway: sweep overdue: %w", err)
	}
	if flipped > 0 {
		s.bumpCache(ctx)
	}
	return s.repo.List(ctx, filter)
}

// GetPlan returns a plan with its line items. Unit prices come from the
// current catalog, not from the time of sale.
func (s *Service) GetPlan(ctx context.Context, id int64) (PlanWithLines, error) {
	plan, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return PlanWithLines{}, shared.ErrNotFound
		}
		return PlanWithLines{}, err
	}
	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return PlanWithLines{}, err
	}
	return PlanWithLines{Plan: plan, Products: lines}, nil
}

// CreatePlan opens a plan after reserving stock for every requested product.
// The stock check, the stock decrement and the plan rows run in one
// repeatable-read transaction with the product rows locked, so two concurrent
// creations cannot both consume the last units.
func (s *Service) CreatePlan(ctx context.Context, input CreateInput) (Plan, error) {
	if err := validateCreate(input); err != nil {
		return Plan{}, err
	}

	balance := input.TotalValue - input.DownPayment
	status := StatusActive
	if balance <= 0 {
		balance = 0
		status = StatusCompleted
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "layaway"); err != nil {
			return Plan{}, err
		}
		insertedKey = true
	}

	plan := Plan{
		CustomerName:    input.CustomerName,
		CustomerIDDoc:   input.CustomerIDDoc,
		CustomerContact: input.CustomerContact,
		TotalValue:      input.TotalValue,
		DownPayment:     input.DownPayment,
		BalanceDue:      balance,
		Deadline:        input.Deadline,
		Status:          status,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, item := range input.Items {
			stock, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					return &shared.InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity}
				}
				return err
			}
			if stock.Quantity < item.Quantity {
				return &shared.InsufficientStockError{
					ProductID:   stock.ID,
					ProductName: stock.Name,
					Requested:   item.Quantity,
					Available:   stock.Quantity,
				}
			}
		}
		inserted, err := tx.InsertPlan(ctx, plan)
		if err != nil {
			return err
		}
		plan = inserted
		for _, item := range input.Items {
			if err := tx.InsertDetail(ctx, PlanDetail{PlanID: plan.ID, ProductID: item.ProductID, Quantity: item.Quantity}); err != nil {
				return err
			}
			if err := tx.AdjustProductStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Plan{}, err
	}

	s.recordAudit(ctx, shared.AuditLog{
		ActorID:   input.ActorID,
		ActorName: input.ActorName,
		Action:    "layaway:create",
		Entity:    "layaway_plan",
		EntityID:  strconv.FormatInt(plan.ID, 10),
		Meta: map[string]any{
			"customer":    input.CustomerName,
			"total_value": input.TotalValue,
			"items":       len(input.Items),
		},
	})
	s.bumpCache(ctx)
	return plan, nil
}

// UpdatePlan applies a payment and/or an explicit status override. A payment
// that clears the balance clamps it to exactly zero and forces completion,
// overriding any supplied status.
func (s *Service) UpdatePlan(ctx context.Context, id int64, input UpdateInput) (Plan, error) {
	if input.PaymentAmount != nil && *input.PaymentAmount <= 0 {
		return Plan{}, shared.NewValidationError("new_payment_amount", "payment must be a positive amount")
	}
	if input.Status != nil && !KnownStatus(*input.Status) {
		return Plan{}, shared.NewValidationError("status", "unknown status")
	}

	var updated Plan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		plan, err := tx.GetPlanForUpdate(ctx, id)
		if err != nil {
			return err
		}
		status := plan.Status
		if input.Status != nil {
			status = *input.Status
		}
		if input.PaymentAmount != nil {
			payment := *input.PaymentAmount
			plan.DownPayment += payment
			plan.BalanceDue -= payment
			if plan.BalanceDue <= 0 {
				plan.BalanceDue = 0
				status = StatusCompleted
			}
		}
		plan.Status = status
		if err := tx.UpdatePlan(ctx, id, plan.DownPayment, plan.BalanceDue, plan.Status); err != nil {
			return err
		}
		updated = plan
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return Plan{}, shared.ErrNotFound
		}
		return Plan{}, err
	}

	meta := map[string]any{"status": string(updated.Status)}
	if input.PaymentAmount != nil {
		meta["payment"] = *input.PaymentAmount
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:   input.ActorID,
		ActorName: input.ActorName,
		Action:    "layaway:payment",
		Entity:    "layaway_plan",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
	})
	s.bumpCache(ctx)
	return updated, nil
}

// CancelPlan deletes the plan and its details, returning the reserved stock
// to the catalog. The stock increments happen in the same transaction that
// removes the detail rows, which are the only record of the reservation.
func (s *Service) CancelPlan(ctx context.Context, id int64, actorID int64, actorName string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPlanForUpdate(ctx, id); err != nil {
			return err
		}
		details, err := tx.ListDetails(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range details {
			if err := tx.AdjustProductStock(ctx, d.ProductID, d.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteDetails(ctx, id); err != nil {
			return err
		}
		return tx.DeletePlan(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return shared.ErrNotFound
		}
		return err
	}

	s.recordAudit(ctx, shared.AuditLog{
		ActorID:   actorID,
		ActorName: actorName,
		Action:    "layaway:cancel",
		Entity:    "layaway_plan",
		EntityID:  strconv.FormatInt(id, 10),
	})
	s.bumpCache(ctx)
	return nil
}

func validateCreate(input CreateInput) error {
	fields := map[string]string{}
	if input.CustomerName == "" {
		fields["customer_name"] = "customer name is required"
	}
	if input.TotalValue <= 0 {
		fields["total_value"] = "total value must be a positive amount"
	}
	if input.DownPayment < 0 {
		fields["down_payment"] = "down payment cannot be negative"
	}
	if input.Deadline.IsZero() {
		fields["deadline"] = "deadline is required"
	}
	if len(input.Items) == 0 {
		fields["products"] = "product list cannot be empty"
	}
	for i, item := range input.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			fields[fmt.Sprintf("products[%d]", i)] = "product id and quantity must be positive"
		}
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

// Audit failures never fail the business operation, but they must be visible.
func (s *Service) recordAudit(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record", slog.Any("error", err), slog.String("action", log.Action))
	}
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("insights cache bump", slog.Any("error", err))
	}
}
