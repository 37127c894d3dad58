package layaway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gestionexus/gestionexus/internal/shared"
)

type memoryRepo struct {
	plans    map[int64]Plan
	details  map[int64][]PlanDetail
	products map[int64]*ProductStock
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		plans:    make(map[int64]Plan),
		details:  make(map[int64][]PlanDetail),
		products: make(map[int64]*ProductStock),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) SweepOverdue(ctx context.Context) (int64, error) {
	var flipped int64
	today := time.Now().Truncate(24 * time.Hour)
	for id, plan := range r.plans {
		if plan.Status == StatusActive && plan.Deadline.Before(today) {
			plan.Status = StatusOverdue
			r.plans[id] = plan
			flipped++
		}
	}
	return flipped, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Plan, error) {
	result := []Plan{}
	for _, plan := range r.plans {
		if filter.Status != "" && filter.Status != "all" && string(plan.Status) != filter.Status {
			continue
		}
		result = append(result, plan)
	}
	return result, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Plan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

func (r *memoryRepo) GetLines(ctx context.Context, planID int64) ([]PlanLine, error) {
	lines := []PlanLine{}
	for _, d := range r.details[planID] {
		line := PlanLine{ProductID: d.ProductID, Quantity: d.Quantity}
		if p, ok := r.products[d.ProductID]; ok {
			line.ProductName = p.Name
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (tx *memoryTx) GetPlanForUpdate(ctx context.Context, id int64) (Plan, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	p, ok := tx.repo.products[productID]
	if !ok {
		return ProductStock{}, ErrProductNotFound
	}
	return *p, nil
}

func (tx *memoryTx) AdjustProductStock(ctx context.Context, productID int64, delta int) error {
	p, ok := tx.repo.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Quantity += delta
	return nil
}

func (tx *memoryTx) InsertPlan(ctx context.Context, plan Plan) (Plan, error) {
	tx.repo.nextID++
	plan.ID = tx.repo.nextID
	plan.CreatedAt = time.Now()
	tx.repo.plans[plan.ID] = plan
	return plan, nil
}

func (tx *memoryTx) InsertDetail(ctx context.Context, detail PlanDetail) error {
	tx.repo.details[detail.PlanID] = append(tx.repo.details[detail.PlanID], detail)
	return nil
}

func (tx *memoryTx) UpdatePlan(ctx context.Context, id int64, downPayment, balanceDue float64, status PlanStatus) error {
	plan, ok := tx.repo.plans[id]
	if !ok {
		return ErrPlanNotFound
	}
	plan.DownPayment = downPayment
	plan.BalanceDue = balanceDue
	plan.Status = status
	tx.repo.plans[id] = plan
	return nil
}

func (tx *memoryTx) ListDetails(ctx context.Context, planID int64) ([]PlanDetail, error) {
	return tx.repo.details[planID], nil
}

func (tx *memoryTx) DeleteDetails(ctx context.Context, planID int64) error {
	delete(tx.repo.details, planID)
	return nil
}

func (tx *memoryTx) DeletePlan(ctx context.Context, planID int64) error {
	delete(tx.repo.plans, planID)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func validCreateInput() CreateInput {
	return CreateInput{
		CustomerName: "Maria Lopez",
		TotalValue:   100000,
		DownPayment:  20000,
		Deadline:     time.Now().AddDate(0, 0, 14),
		Items:        []ItemInput{{ProductID: 1, Quantity: 2}},
	}
}

func TestCreatePlanReservesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Leather bag", Quantity: 5}
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.Equal(t, 80000.0, plan.BalanceDue)
	require.Equal(t, StatusActive, plan.Status)
	require.Equal(t, 3, repo.products[1].Quantity)
	require.Len(t, repo.details[plan.ID], 1)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "layaway:create", audit.logs[0].Action)
}

func TestCreatePlanInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Leather bag", Quantity: 3}
	svc := NewService(repo, nil, nil, nil, nil)

	input := validCreateInput()
	input.Items = []ItemInput{{ProductID: 1, Quantity: 10}}
	_, err := svc.CreatePlan(context.Background(), input)

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "Leather bag", stockErr.ProductName)
	require.Equal(t, 10, stockErr.Requested)
	require.Equal(t, 3, stockErr.Available)
	require.Empty(t, repo.plans)
	require.Equal(t, 3, repo.products[1].Quantity)
}

func TestCreatePlanPartialInsufficiencyLeavesNothing(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	repo.products[2] = &ProductStock{ID: 2, Name: "Belt", Quantity: 1}
	svc := NewService(repo, nil, nil, nil, nil)

	input := validCreateInput()
	input.Items = []ItemInput{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 4}}
	_, err := svc.CreatePlan(context.Background(), input)

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(2), stockErr.ProductID)
	require.Empty(t, repo.plans)
	require.Empty(t, repo.details)
	require.Equal(t, 5, repo.products[1].Quantity)
	require.Equal(t, 1, repo.products[2].Quantity)
}

func TestCreatePlanMissingProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.CreatePlan(context.Background(), validCreateInput())
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(1), stockErr.ProductID)
}

func TestCreatePlanValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.CreatePlan(context.Background(), CreateInput{})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "customer_name")
	require.Contains(t, validationErr.Fields, "products")
}

func TestCreatePlanFullyPaidUpFront(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	svc := NewService(repo, nil, nil, nil, nil)

	input := validCreateInput()
	input.DownPayment = 120000
	plan, err := svc.CreatePlan(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 0.0, plan.BalanceDue)
	require.Equal(t, StatusCompleted, plan.Status)
}

func TestUpdatePlanExactPaymentCompletes(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	svc := NewService(repo, nil, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)

	payment := 80000.0
	updated, err := svc.UpdatePlan(context.Background(), plan.ID, UpdateInput{PaymentAmount: &payment})
	require.NoError(t, err)
	require.Equal(t, 100000.0, updated.DownPayment)
	require.Equal(t, 0.0, updated.BalanceDue)
	require.Equal(t, StatusCompleted, updated.Status)
}

func TestUpdatePlanOverpaymentClampsToZero(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	svc := NewService(repo, nil, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)

	payment := 95000.0
	updated, err := svc.UpdatePlan(context.Background(), plan.ID, UpdateInput{PaymentAmount: &payment})
	require.NoError(t, err)
	require.Equal(t, 0.0, updated.BalanceDue)
	require.Equal(t, StatusCompleted, updated.Status)
}

func TestUpdatePlanPaymentOverridesExplicitStatus(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	svc := NewService(repo, nil, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)

	payment := 80000.0
	status := StatusOverdue
	updated, err := svc.UpdatePlan(context.Background(), plan.ID, UpdateInput{PaymentAmount: &payment, Status: &status})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, updated.Status)
}

func TestUpdatePlanStatusOverrideWithoutPayment(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	svc := NewService(repo, nil, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)

	status := StatusOverdue
	updated, err := svc.UpdatePlan(context.Background(), plan.ID, UpdateInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, updated.Status)
	require.Equal(t, 20000.0, updated.DownPayment)
	require.Equal(t, 80000.0, updated.BalanceDue)
}

func TestUpdatePlanUnknownStatusRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	status := PlanStatus("archived")
	_, err := svc.UpdatePlan(context.Background(), 1, UpdateInput{Status: &status})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestUpdatePlanNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	payment := 1000.0
	_, err := svc.UpdatePlan(context.Background(), 42, UpdateInput{PaymentAmount: &payment})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCancelPlanRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 5}
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.Equal(t, 3, repo.products[1].Quantity)

	err = svc.CancelPlan(context.Background(), plan.ID, 7, "admin")
	require.NoError(t, err)
	require.Empty(t, repo.plans)
	require.Empty(t, repo.details)
	require.Equal(t, 5, repo.products[1].Quantity)
	require.Equal(t, "layaway:cancel", audit.logs[len(audit.logs)-1].Action)
}

func TestCancelPlanNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	err := svc.CancelPlan(context.Background(), 99, 1, "admin")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPlansSweepsOverdue(t *testing.T) {
	repo := newMemoryRepo()
	repo.nextID = 1
	repo.plans[1] = Plan{
		ID:           1,
		CustomerName: "Late customer",
		TotalValue:   50000,
		DownPayment:  10000,
		BalanceDue:   40000,
		Deadline:     time.Now().AddDate(0, 0, -2),
		Status:       StatusActive,
	}
	svc := NewService(repo, nil, nil, nil, nil)

	plans, err := svc.ListPlans(context.Background(), ListFilter{Status: "all"})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, StatusOverdue, plans[0].Status)
}

func TestListPlansUnknownStatusFilter(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.ListPlans(context.Background(), ListFilter{Status: "archived"})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestBalanceInvariantHolds(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = &ProductStock{ID: 1, Name: "Bag", Quantity: 50}
	svc := NewService(repo, nil, nil, nil, nil)

	plan, err := svc.CreatePlan(context.Background(), validCreateInput())
	require.NoError(t, err)

	for _, payment := range []float64{10000, 25000, 5000} {
		p := payment
		updated, err := svc.UpdatePlan(context.Background(), plan.ID, UpdateInput{PaymentAmount: &p})
		require.NoError(t, err)
		expected := updated.TotalValue - updated.DownPayment
		if expected < 0 {
			expected = 0
		}
		require.Equal(t, expected, updated.BalanceDue)
		if updated.BalanceDue == 0 {
			require.Equal(t, StatusCompleted, updated.Status)
		}
	}
}

func TestGetPlanNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.GetPlan(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
