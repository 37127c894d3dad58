package insights

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const topReservedLimit = 10

// RepositoryPort is what the service needs from persistence.
type RepositoryPort interface {
	StatusBreakdown(ctx context.Context, w Window) ([]StatusBreakdown, error)
	CollectedDaily(ctx context.Context, w Window) ([]DailyCollected, error)
	TopReserved(ctx context.Context, limit int) ([]ReservedProduct, error)
	InventoryValue(ctx context.Context) (InventoryValue, error)
}

type Service struct {
	repo  RepositoryPort
	cache *Cache
}

func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Overview returns the aggregated metrics for the window, served from the
// versioned cache when warm.
func (s *Service) Overview(ctx context.Context, w Window) (Overview, error) {
	key, err := s.cache.BuildKey(ctx, keyOverview(w.From, w.To))
	if err != nil {
		return Overview{}, fmt.Errorf("build cache key: %w", err)
	}
	var out Overview
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.load(ctx, w)
	})
	if err != nil {
		return Overview{}, err
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, w Window) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.ByStatus, err = s.repo.StatusBreakdown(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		out.CollectedDaily, err = s.repo.CollectedDaily(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		out.TopReserved, err = s.repo.TopReserved(gctx, topReservedLimit)
		return err
	})
	g.Go(func() error {
		var err error
		out.Inventory, err = s.repo.InventoryValue(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load insights: %w", err)
	}
	if out.ByStatus == nil {
		out.ByStatus = []StatusBreakdown{}
	}
	if out.CollectedDaily == nil {
		out.CollectedDaily = []DailyCollected{}
	}
	if out.TopReserved == nil {
		out.TopReserved = []ReservedProduct{}
	}
	return out, nil
}
