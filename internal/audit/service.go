package audit

import (
	"context"
	"fmt"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Result wraps timeline rows with paging metadata.
type Result struct {
	Entries []Entry           `json:"items"`
	Paging  shared.Pagination `json:"paging"`
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService constructs the audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns audit entries for a clinic, newest first.
func (s *Service) Timeline(ctx context.Context, clinicID string, filters TimelineFilters) (Result, error) {
	if clinicID == "" {
		return Result{}, fmt.Errorf("audit: clinic required: %w", shared.ErrValidation)
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	if filters.PageSize > 50 {
		filters.PageSize = 50
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}

	entries, total, err := s.repo.Timeline(ctx, clinicID, filters)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Result{
		Entries: entries,
		Paging:  shared.NewPagination(filters.Page, filters.PageSize, total),
	}, nil
}
