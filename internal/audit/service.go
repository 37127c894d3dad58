package audit

import (
	"context"
	"fmt"

	"github.com/gestionexus/gestionexus/internal/shared"
)

// RepositoryPort abstracts timeline queries.
type RepositoryPort interface {
	List(ctx context.Context, params ListParams) ([]Entry, error)
	Count(ctx context.Context, params ListParams) (int, error)
}

// Result wraps timeline rows with paging information.
type Result struct {
	Entries []Entry           `json:"logs"`
	Paging  shared.Pagination `json:"paging"`
}

// Service coordinates audit timeline reads.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

const (
	defaultPageSize = 15
	maxPageSize     = 50
)

// Timeline fetches audit entries with paging, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	params := ListParams{
		Search: filters.Search,
		From:   filters.From,
		To:     filters.To,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	entries, err := s.repo.List(ctx, params)
	if err != nil {
		return Result{}, err
	}
	total, err := s.repo.Count(ctx, params)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Entries: entries,
		Paging:  shared.NewPagination(page, pageSize, total),
	}, nil
}
