package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

type memoryRepo struct {
	entries []Entry
	got     TimelineFilters
}

func (r *memoryRepo) Timeline(ctx context.Context, clinicID string, filters TimelineFilters) ([]Entry, int, error) {
	r.got = filters
	var out []Entry
	for _, e := range r.entries {
		if e.ClinicID == clinicID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func TestTimelineDefaultsPaging(t *testing.T) {
	repo := &memoryRepo{entries: []Entry{{ID: 1, ClinicID: "clinic-1", Action: "stock:ENTRADA", Entity: "stock_movement", EntityID: "m1", OccurredAt: time.Now()}}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), "clinic-1", TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.Equal(t, 1, repo.got.Page)
	require.Equal(t, 20, repo.got.PageSize)
	require.Equal(t, 1, result.Paging.Total)
}

func TestTimelineCapsPageSize(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)

	_, err := svc.Timeline(context.Background(), "clinic-1", TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, repo.got.PageSize)
}

func TestTimelineRequiresClinic(t *testing.T) {
	svc := NewService(&memoryRepo{})
	_, err := svc.Timeline(context.Background(), "", TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrValidation)
}
