package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	entries    []Entry
	lastParams ListParams
}

func (r *memoryRepo) List(ctx context.Context, params ListParams) ([]Entry, error) {
	r.lastParams = params
	start := params.Offset
	if start > len(r.entries) {
		start = len(r.entries)
	}
	end := start + params.Limit
	if end > len(r.entries) {
		end = len(r.entries)
	}
	return r.entries[start:end], nil
}

func (r *memoryRepo) Count(ctx context.Context, params ListParams) (int, error) {
	return len(r.entries), nil
}

func seedEntries(n int) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{ID: int64(n - i), Action: "layaway:create", At: time.Now()})
	}
	return entries
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryRepo{entries: seedEntries(40)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 15})
	require.NoError(t, err)
	require.Len(t, result.Entries, 15)
	require.Equal(t, 2, result.Paging.Page)
	require.Equal(t, 40, result.Paging.Total)
	require.Equal(t, 3, result.Paging.TotalPages)
	require.Equal(t, 15, repo.lastParams.Offset)
}

func TestTimelineDefaultsAndCaps(t *testing.T) {
	repo := &memoryRepo{entries: seedEntries(5)}
	svc := NewService(repo)

	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, 15, repo.lastParams.Limit)
	require.Equal(t, 0, repo.lastParams.Offset)

	_, err = svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, repo.lastParams.Limit)
}
