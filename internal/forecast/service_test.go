package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

type fakeRepo struct {
	quantity    float64
	consumed    float64
	reads       int
	windowStart time.Time
}

func (r *fakeRepo) CurrentQuantity(ctx context.Context, clinicID, productID string) (float64, error) {
	r.reads++
	return r.quantity, nil
}

func (r *fakeRepo) ConsumptionSince(ctx context.Context, clinicID, productID string, since time.Time) (float64, error) {
	r.windowStart = since
	return r.consumed, nil
}

func TestSuggestReordersBelowHorizon(t *testing.T) {
	// 90 units consumed over 30 days: 3/day. 20 on hand covers 6.67 days,
	// well under the 15-day horizon, so suggest 60 days of coverage.
	repo := &fakeRepo{quantity: 20, consumed: 90}
	svc := NewService(repo, nil)

	suggestion, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.InDelta(t, 3.0, suggestion.DailyAverage, 0.0001)
	require.InDelta(t, 20.0/3.0, suggestion.DaysOfStock, 0.0001)
	require.InDelta(t, 180.0, suggestion.SuggestedQuantity, 0.0001)
	require.Equal(t, 30, suggestion.WindowDays)
}

func TestSuggestRoundsUpFractionalDemand(t *testing.T) {
	// 50.2 consumed over 30 days targets 100.4 units of 60-day coverage,
	// rounded up to whole units.
	repo := &fakeRepo{quantity: 1, consumed: 50.2}
	svc := NewService(repo, nil)

	suggestion, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.InDelta(t, 101.0, suggestion.SuggestedQuantity, 0.0001)
}

func TestSuggestNoReorderWithHealthyCoverage(t *testing.T) {
	// 30 units over 30 days: 1/day. 20 on hand covers 20 days.
	repo := &fakeRepo{quantity: 20, consumed: 30}
	svc := NewService(repo, nil)

	suggestion, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.InDelta(t, 20.0, suggestion.DaysOfStock, 0.0001)
	require.InDelta(t, 0.0, suggestion.SuggestedQuantity, 0.0001)
}

func TestSuggestZeroConsumption(t *testing.T) {
	// No consumption: the division guard keeps daysOfStock equal to the
	// balance instead of dividing by zero, and nothing is suggested.
	repo := &fakeRepo{quantity: 7, consumed: 0}
	svc := NewService(repo, nil)

	suggestion, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.InDelta(t, 0.0, suggestion.DailyAverage, 0.0001)
	require.InDelta(t, 7.0, suggestion.DaysOfStock, 0.0001)
	require.InDelta(t, 0.0, suggestion.SuggestedQuantity, 0.0001)
}

func TestSuggestUsesThirtyDayWindow(t *testing.T) {
	repo := &fakeRepo{quantity: 10, consumed: 0}
	svc := NewService(repo, nil)
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, -30), repo.windowStart)
}

func TestSuggestRequiresScope(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)
	_, err := svc.Suggest(context.Background(), "", "p1")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSuggestServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := &fakeRepo{quantity: 20, consumed: 90}
	svc := NewService(repo, NewCache(client, time.Minute))

	first, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.reads)

	second, err := svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.reads, "second call must not hit the repository")
	require.InDelta(t, first.SuggestedQuantity, second.SuggestedQuantity, 0.0001)

	// Expired entries recompute.
	mr.FastForward(2 * time.Minute)
	_, err = svc.Suggest(context.Background(), "clinic-1", "p1")
	require.NoError(t, err)
	require.Equal(t, 2, repo.reads)
}
