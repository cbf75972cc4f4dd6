package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Repository persists alerts.
type Repository interface {
	DeleteUnreadByProduct(ctx context.Context, clinicID, productID string) error
	Insert(ctx context.Context, alert Alert) error
	MarkRead(ctx context.Context, clinicID, id string) error
	DeleteRead(ctx context.Context, clinicID string) error
	List(ctx context.Context, clinicID string, unreadOnly bool) ([]Alert, error)
}

// Notifier receives raised alerts for delivery to humans (toast, log, mail).
// The engine itself only produces typed data.
type Notifier interface {
	AlertRaised(ctx context.Context, alert Alert)
}

// Service recomputes the low-stock alert set per product.
type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

// NewService builds the alert engine.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// Evaluate replaces the product's unread alert set based on the given
// balance, writing through the engine's own repository. The sweep job uses
// this path; ledger writes go through EvaluateIn instead.
func (s *Service) Evaluate(ctx context.Context, clinicID, productID string, current, minimum float64) (*Alert, error) {
	return s.EvaluateIn(ctx, s.repo, clinicID, productID, current, minimum)
}

// EvaluateIn replaces the product's unread alert set based on the balance the
// caller is about to commit, writing through store. The ledger passes a store
// bound to its movement transaction: purge and insert then commit atomically
// with the balance they were derived from, under the product row lock, so
// concurrent movements cannot leave duplicate or stale unread alerts. The
// notifier fires before that transaction commits.
func (s *Service) EvaluateIn(ctx context.Context, store Repository, clinicID, productID string, current, minimum float64) (*Alert, error) {
	if clinicID == "" || productID == "" {
		return nil, fmt.Errorf("alerts: clinic and product required: %w", shared.ErrValidation)
	}

	// Prior unread alerts always go away; the set is recomputed from scratch.
	if err := store.DeleteUnreadByProduct(ctx, clinicID, productID); err != nil {
		return nil, fmt.Errorf("alerts: purge unread: %w", err)
	}

	alertType, suggested, ok := Derive(current, minimum)
	if !ok {
		return nil, nil
	}

	alert := Alert{
		ID:                uuid.NewString(),
		ClinicID:          clinicID,
		ProductID:         productID,
		Type:              alertType,
		Message:           message(alertType, current, minimum),
		CurrentQuantity:   current,
		SuggestedQuantity: suggested,
		CreatedAt:         s.now(),
	}
	if err := store.Insert(ctx, alert); err != nil {
		return nil, fmt.Errorf("alerts: insert: %w", err)
	}
	if s.notifier != nil {
		s.notifier.AlertRaised(ctx, alert)
	}
	return &alert, nil
}

// MarkRead acknowledges a single alert. Stock logic is untouched.
func (s *Service) MarkRead(ctx context.Context, clinicID, id string) error {
	if id == "" {
		return fmt.Errorf("alerts: alert id required: %w", shared.ErrValidation)
	}
	return s.repo.MarkRead(ctx, clinicID, id)
}

// ClearRead purges acknowledged alerts. Housekeeping, not a business rule.
func (s *Service) ClearRead(ctx context.Context, clinicID string) error {
	return s.repo.DeleteRead(ctx, clinicID)
}

// List returns the clinic's alerts, optionally only unread ones.
func (s *Service) List(ctx context.Context, clinicID string, unreadOnly bool) ([]Alert, error) {
	return s.repo.List(ctx, clinicID, unreadOnly)
}
