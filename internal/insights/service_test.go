package insights

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockRepo struct {
	byStatus   []StatusBreakdown
	daily      []DailyCollected
	reserved   []ReservedProduct
	inventory  InventoryValue
	loadCalls  int
	lastWindow Window
	lastTopN   int
}

func (m *mockRepo) StatusBreakdown(_ context.Context, w Window) ([]StatusBreakdown, error) {
	m.loadCalls++
	m.lastWindow = w
	return m.byStatus, nil
}

func (m *mockRepo) CollectedDaily(context.Context, Window) ([]DailyCollected, error) {
	return m.daily, nil
}

func (m *mockRepo) TopReserved(_ context.Context, limit int) ([]ReservedProduct, error) {
	m.lastTopN = limit
	return m.reserved, nil
}

func (m *mockRepo) InventoryValue(context.Context) (InventoryValue, error) {
	return m.inventory, nil
}

func newTestService(t *testing.T, repo RepositoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestOverviewCaches(t *testing.T) {
	repo := &mockRepo{
		byStatus: []StatusBreakdown{
			{Status: "active", Plans: 4, Outstanding: 320000, Collected: 180000},
			{Status: "completed", Plans: 2, Collected: 250000},
		},
		inventory: InventoryValue{Units: 40, AtCost: 900000, AtPrice: 1500000, Products: 12},
	}
	svc := newTestService(t, repo)

	ctx := context.Background()
	w := Window{From: "2026-01-01", To: "2026-01-31"}
	out, err := svc.Overview(ctx, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.ByStatus) != 2 {
		t.Fatalf("expected 2 status rows got %d", len(out.ByStatus))
	}
	if out.Inventory.AtCost != 900000 {
		t.Fatalf("expected inventory at cost 900000 got %.2f", out.Inventory.AtCost)
	}
	if repo.loadCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.loadCalls)
	}
	if repo.lastWindow != w {
		t.Fatalf("window not forwarded: %+v", repo.lastWindow)
	}
	if repo.lastTopN != topReservedLimit {
		t.Fatalf("expected top limit %d got %d", topReservedLimit, repo.lastTopN)
	}

	// Second call should hit cache.
	if _, err := svc.Overview(ctx, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.loadCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.loadCalls)
	}

	// A different window is a different key.
	if _, err := svc.Overview(ctx, Window{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.loadCalls != 2 {
		t.Fatalf("expected fresh load for new window, calls %d", repo.loadCalls)
	}

	// Bumping the cache should trigger reload.
	if err := svc.cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.byStatus[0].Plans = 5
	out, err = svc.Overview(ctx, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ByStatus[0].Plans != 5 {
		t.Fatalf("expected refreshed value 5 got %d", out.ByStatus[0].Plans)
	}
	if repo.loadCalls != 3 {
		t.Fatalf("expected repo to refresh, calls %d", repo.loadCalls)
	}
}

func TestOverviewEmptySlicesNotNull(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	out, err := svc.Overview(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ByStatus == nil || out.CollectedDaily == nil || out.TopReserved == nil {
		t.Fatal("expected empty slices, not nil")
	}
}

func TestOverviewWithoutRedis(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil)

	if _, err := svc.Overview(context.Background(), Window{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Overview(context.Background(), Window{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.loadCalls != 2 {
		t.Fatalf("expected pass-through loads, calls %d", repo.loadCalls)
	}
}
