package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	"github.com/dentaflow/dentaflow-stock/internal/catalog"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByProduct(ctx context.Context, clinicID, productID string, filter HistoryFilter) ([]Movement, error)
}

// TxRepository exposes the operations that must happen inside one transaction:
// the balance update, the movement insert and the alert-set replacement
// commit or roll back together.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, clinicID, productID string) (catalog.Product, error)
	SetProductQuantity(ctx context.Context, clinicID, productID string, quantity float64) error
	InsertMovement(ctx context.Context, movement Movement) error
	Alerts() alerts.Repository
}

// AlertEvaluator re-derives the product's alert set from the balance the
// enclosing transaction is about to commit, writing through store.
type AlertEvaluator interface {
	EvaluateIn(ctx context.Context, store alerts.Repository, clinicID, productID string, current, minimum float64) (*alerts.Alert, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts recorded movements.
type MetricsPort interface {
	MovementRecorded(movementType string)
}

// Result carries everything a caller needs after a write, so UIs do not
// re-fetch whole collections.
type Result struct {
	Movement Movement        `json:"movement"`
	Product  catalog.Product `json:"product"`
	Alert    *alerts.Alert   `json:"alert,omitempty"`
}

// Service is the movement ledger: the sole writer of product balances.
type Service struct {
	repo      RepositoryPort
	evaluator AlertEvaluator
	audit     AuditPort
	metrics   MetricsPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the ledger service.
func NewService(repo RepositoryPort, evaluator AlertEvaluator, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordMovement validates the input, then applies the balance effect,
// appends the movement and replaces the product's unread alert set in one
// transaction. The product row lock is held throughout, so concurrent writers
// serialize end to end and the unread alert set always reflects the latest
// committed balance. Deliberately not idempotent: posting the same payload
// twice applies twice.
func (s *Service) RecordMovement(ctx context.Context, in RecordInput) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	effect, err := EffectOf(in.Type)
	if err != nil {
		return Result{}, err
	}

	movement := Movement{
		ID:            uuid.NewString(),
		ClinicID:      in.ClinicID,
		ProductID:     in.ProductID,
		Type:          in.Type,
		Quantity:      in.Quantity,
		Lot:           in.Lot,
		ExpiryDate:    in.ExpiryDate,
		Reason:        in.Reason,
		UnitValue:     in.UnitValue,
		SupplierID:    in.SupplierID,
		InvoiceNumber: in.InvoiceNumber,
		PerformedBy:   in.PerformedBy,
		CreatedAt:     s.now(),
	}
	if in.UnitValue != nil {
		total := *in.UnitValue * in.Quantity
		movement.TotalValue = &total
	}

	var result Result
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, in.ClinicID, in.ProductID)
		if err != nil {
			return err
		}
		newQuantity := effect.Apply(product.CurrentQuantity, in.Quantity)
		if err := tx.SetProductQuantity(ctx, in.ClinicID, in.ProductID, newQuantity); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return err
		}
		// The alert set rides the same transaction: an alert write failure
		// rolls the movement back rather than leaving the set stale.
		if s.evaluator != nil {
			alert, err := s.evaluator.EvaluateIn(ctx, tx.Alerts(), in.ClinicID, in.ProductID, newQuantity, product.MinimumQuantity)
			if err != nil {
				return err
			}
			result.Alert = alert
		}
		product.CurrentQuantity = newQuantity
		result.Movement = movement
		result.Product = product
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.MovementRecorded(string(in.Type))
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ClinicID: in.ClinicID,
			ActorID:  in.PerformedBy,
			Action:   fmt.Sprintf("stock:%s", in.Type),
			Entity:   "stock_movement",
			EntityID: movement.ID,
			Meta: map[string]any{
				"product_id": in.ProductID,
				"quantity":   in.Quantity,
				"balance":    result.Product.CurrentQuantity,
				"reason":     in.Reason,
			},
		})
	}

	return result, nil
}

// History lists a product's movements, newest first.
func (s *Service) History(ctx context.Context, clinicID, productID string, filter HistoryFilter) ([]Movement, error) {
	if clinicID == "" || productID == "" {
		return nil, fmt.Errorf("ledger: clinic and product required: %w", shared.ErrValidation)
	}
	if filter.Limit <= 0 {
		filter.Limit = 200
	}
	return s.repo.ListByProduct(ctx, clinicID, productID, filter)
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
