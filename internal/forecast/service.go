package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Service computes replenishment suggestions from trailing consumption.
// It is pure read: no alert state, no balances are ever mutated here.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService builds the forecast engine. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Suggest computes the replenishment suggestion for a product.
//
// dailyAverage averages SAIDA+PERDA over the trailing 30 days. daysOfStock
// divides the balance by that average, guarding only the division against
// zero consumption. A suggestion targets 60 days of coverage and is produced
// only when fewer than 15 days remain.
func (s *Service) Suggest(ctx context.Context, clinicID, productID string) (Suggestion, error) {
	if clinicID == "" || productID == "" {
		return Suggestion{}, fmt.Errorf("forecast: clinic and product required: %w", shared.ErrValidation)
	}

	if cached, ok := s.cache.Get(ctx, clinicID, productID); ok {
		return cached, nil
	}

	quantity, err := s.repo.CurrentQuantity(ctx, clinicID, productID)
	if err != nil {
		return Suggestion{}, err
	}

	now := s.now()
	consumed, err := s.repo.ConsumptionSince(ctx, clinicID, productID, now.AddDate(0, 0, -consumptionWindowDays))
	if err != nil {
		return Suggestion{}, fmt.Errorf("forecast: consumption window: %w", err)
	}

	dailyAverage := consumed / consumptionWindowDays

	divisor := dailyAverage
	if divisor == 0 {
		divisor = 1
	}
	daysOfStock := quantity / divisor

	var suggested float64
	if daysOfStock < reorderHorizonDays {
		suggested = math.Ceil(dailyAverage * coverageTargetDays)
	}

	suggestion := Suggestion{
		ProductID:         productID,
		CurrentQuantity:   quantity,
		DailyAverage:      dailyAverage,
		DaysOfStock:       daysOfStock,
		SuggestedQuantity: suggested,
		WindowDays:        consumptionWindowDays,
		GeneratedAt:       now,
	}
	s.cache.Set(ctx, clinicID, suggestion)
	return suggestion, nil
}
