package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort is what the service needs from persistence.
type RepositoryPort interface {
	ListLowStock(ctx context.Context, threshold int) ([]ProductLow, error)
	ListOverduePlans(ctx context.Context) ([]PlanDue, error)
	ListPlansDueWithin(ctx context.Context, days int) ([]PlanDue, error)
}

type Service struct {
	repo           RepositoryPort
	stockThreshold int
	dueSoonDays    int
	logger         *slog.Logger
}

func NewService(repo RepositoryPort, stockThreshold, dueSoonDays int, logger *slog.Logger) *Service {
	if stockThreshold <= 0 {
		stockThreshold = 3
	}
	if dueSoonDays <= 0 {
		dueSoonDays = 3
	}
	return &Service{repo: repo, stockThreshold: stockThreshold, dueSoonDays: dueSoonDays, logger: logger}
}

// Feed assembles the current alert list. The three queries are independent,
// so they run concurrently; any failure fails the whole feed.
func (s *Service) Feed(ctx context.Context) ([]Alert, error) {
	var (
		low     []ProductLow
		overdue []PlanDue
		dueSoon []PlanDue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		low, err = s.repo.ListLowStock(gctx, s.stockThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		overdue, err = s.repo.ListOverduePlans(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		dueSoon, err = s.repo.ListPlansDueWithin(gctx, s.dueSoonDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble notification feed: %w", err)
	}

	alerts := make([]Alert, 0, len(low)+len(overdue)+len(dueSoon))
	for _, p := range low {
		alerts = append(alerts, Alert{
			ID:      fmt.Sprintf("stock-%d", p.ID),
			Type:    TypeStockAlert,
			Message: fmt.Sprintf("Quedan solo %d unidades de %s.", p.Quantity, p.Name),
		})
	}
	for _, p := range overdue {
		alerts = append(alerts, Alert{
			ID:      fmt.Sprintf("due-%d", p.ID),
			Type:    TypePaymentDue,
			Message: fmt.Sprintf("El plan separe #%d de %s está vencido desde el %s.", p.ID, p.CustomerName, p.Deadline.Format("2006-01-02")),
		})
	}
	for _, p := range dueSoon {
		alerts = append(alerts, Alert{
			ID:      fmt.Sprintf("soon-%d", p.ID),
			Type:    TypePaymentSoon,
			Message: fmt.Sprintf("El plan separe #%d de %s vence el %s.", p.ID, p.CustomerName, p.Deadline.Format("2006-01-02")),
		})
	}
	return alerts, nil
}
