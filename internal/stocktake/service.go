package stocktake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentaflow/dentaflow-stock/internal/ledger"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Repository persists sessions and their item snapshots.
type Repository interface {
	InsertSession(ctx context.Context, session Session, items []Item) error
	GetSession(ctx context.Context, clinicID, sessionID string) (Session, error)
	ListSessions(ctx context.Context, clinicID string, page shared.Pagination) ([]Session, error)
	ListItems(ctx context.Context, sessionID string) ([]Item, error)
	GetItem(ctx context.Context, sessionID, itemID string) (Item, error)
	UpdateItemCount(ctx context.Context, item Item) error
	UpdateSessionProgress(ctx context.Context, session Session) error
	UpdateSessionStatus(ctx context.Context, clinicID, sessionID string, status SessionStatus, at time.Time) error
	ProductsInScope(ctx context.Context, clinicID string, scope Scope) ([]ScopeProduct, error)
}

// Scope narrows which products a PARTIAL or CYCLIC session snapshots. An
// empty scope means the whole active catalog.
type Scope struct {
	CategoryID *string
	ProductIDs []string
}

// ScopeProduct is the balance snapshot taken at session creation.
type ScopeProduct struct {
	ID        string
	Quantity  float64
	UnitValue float64
	Lot       *string
}

// MovementPoster posts corrective movements through the ledger. The
// reconciliation never touches balances directly.
type MovementPoster interface {
	RecordMovement(ctx context.Context, in ledger.RecordInput) (ledger.Result, error)
}

// RunLocker serializes adjustment runs per session.
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CreateInput captures a new session request.
type CreateInput struct {
	Number      string
	Date        time.Time
	Type        SessionType
	Responsible string
	Scope       Scope
}

const adjustmentLockTTL = 5 * time.Minute

// Service runs inventory count sessions and reconciles divergences back into
// the ledger.
type Service struct {
	repo   Repository
	poster MovementPoster
	locker RunLocker
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the stocktake service. audit may be nil.
func NewService(repo Repository, poster MovementPoster, locker RunLocker, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		poster: poster,
		locker: locker,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession opens a PLANNED session, snapshotting the current system
// quantity and unit value of every product in scope. Later movements never
// retroactively change the snapshot.
func (s *Service) CreateSession(ctx context.Context, clinicID string, in CreateInput) (Session, error) {
	if clinicID == "" {
		return Session{}, fmt.Errorf("stocktake: clinic required: %w", shared.ErrValidation)
	}
	switch in.Type {
	case TypeGeneral, TypePartial, TypeCyclic:
	default:
		return Session{}, ErrUnknownSessionType
	}
	if strings.TrimSpace(in.Number) == "" || strings.TrimSpace(in.Responsible) == "" {
		return Session{}, fmt.Errorf("stocktake: number and responsible required: %w", shared.ErrValidation)
	}
	if in.Type == TypeGeneral {
		in.Scope = Scope{}
	}

	products, err := s.repo.ProductsInScope(ctx, clinicID, in.Scope)
	if err != nil {
		return Session{}, fmt.Errorf("stocktake: scope snapshot: %w", err)
	}
	if len(products) == 0 {
		return Session{}, fmt.Errorf("stocktake: scope matches no products: %w", shared.ErrValidation)
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	session := Session{
		ID:          uuid.NewString(),
		ClinicID:    clinicID,
		Number:      in.Number,
		Date:        date,
		Type:        in.Type,
		Status:      StatusPlanned,
		Responsible: in.Responsible,
		TotalItems:  len(products),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, Item{
			ID:             uuid.NewString(),
			SessionID:      session.ID,
			ProductID:      p.ID,
			SystemQuantity: p.Quantity,
			UnitValue:      p.UnitValue,
			Lot:            p.Lot,
		})
	}
	if err := s.repo.InsertSession(ctx, session, items); err != nil {
		return Session{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ClinicID: clinicID,
			ActorID:  in.Responsible,
			Action:   "stocktake:create",
			Entity:   "stocktake_session",
			EntityID: session.ID,
			Meta:     map[string]any{"number": in.Number, "type": in.Type, "items": len(items)},
		})
	}
	return session, nil
}

// Get returns a session with its items.
func (s *Service) Get(ctx context.Context, clinicID, sessionID string) (Session, []Item, error) {
	session, err := s.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		return Session{}, nil, err
	}
	items, err := s.repo.ListItems(ctx, sessionID)
	if err != nil {
		return Session{}, nil, err
	}
	return session, items, nil
}

// List pages a clinic's sessions, newest first.
func (s *Service) List(ctx context.Context, clinicID string, page shared.Pagination) ([]Session, error) {
	return s.repo.ListSessions(ctx, clinicID, page)
}

// RecordCount stores the physical quantity for one item and refreshes the
// session counters. Recounting overwrites the previous count.
func (s *Service) RecordCount(ctx context.Context, clinicID, sessionID, itemID string, physical float64, countedBy string) (Item, error) {
	if physical < 0 {
		return Item{}, ErrNegativeCount
	}
	session, err := s.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		return Item{}, err
	}
	if session.Status != StatusPlanned && session.Status != StatusInProgress {
		return Item{}, ErrSessionClosed
	}
	item, err := s.repo.GetItem(ctx, sessionID, itemID)
	if err != nil {
		return Item{}, err
	}

	item = item.ApplyCount(physical, countedBy, s.now())
	if err := s.repo.UpdateItemCount(ctx, item); err != nil {
		return Item{}, err
	}

	if err := s.refreshProgress(ctx, session); err != nil {
		return Item{}, err
	}
	return item, nil
}

// refreshProgress recomputes counters from the items and moves a PLANNED
// session to IN_PROGRESS on the first count.
func (s *Service) refreshProgress(ctx context.Context, session Session) error {
	items, err := s.repo.ListItems(ctx, session.ID)
	if err != nil {
		return err
	}
	session.CountedItems = 0
	session.DivergencesFound = 0
	session.DivergenceValue = 0
	for _, it := range items {
		if !it.Counted() {
			continue
		}
		session.CountedItems++
		if it.Divergence != 0 {
			session.DivergencesFound++
			session.DivergenceValue += it.DivergenceValue
		}
	}
	if session.Status == StatusPlanned && session.CountedItems > 0 {
		session.Status = StatusInProgress
	}
	session.UpdatedAt = s.now()
	return s.repo.UpdateSessionProgress(ctx, session)
}

// ApplyAdjustments posts one corrective AJUSTE per divergent counted item,
// carrying the counted quantity as the absolute target. The run is
// best-effort: a failed item never blocks the rest, and the session reaches
// COMPLETED only when every divergence resolves. A redis lock serializes
// concurrent runs for the same session.
func (s *Service) ApplyAdjustments(ctx context.Context, clinicID, sessionID, actorID string) (AdjustmentReport, error) {
	session, err := s.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		return AdjustmentReport{}, err
	}
	if session.Status == StatusCompleted || session.Status == StatusCancelled {
		return AdjustmentReport{}, ErrSessionClosed
	}
	if session.Status != StatusInProgress {
		return AdjustmentReport{}, ErrNothingCounted
	}

	lockKey := shared.StocktakeLockKey(sessionID)
	ok, err := s.locker.Acquire(ctx, lockKey, adjustmentLockTTL)
	if err != nil {
		return AdjustmentReport{}, fmt.Errorf("stocktake: acquire run lock: %w", err)
	}
	if !ok {
		return AdjustmentReport{}, ErrAdjustmentRunning
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			s.log().Warn("release stocktake lock failed", slog.Any("error", err), slog.String("session_id", sessionID))
		}
	}()

	// Re-read under the lock: a concurrent run may have completed the
	// session between the first read and the lock acquisition.
	session, err = s.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		return AdjustmentReport{}, err
	}
	if session.Status != StatusInProgress {
		return AdjustmentReport{}, ErrSessionClosed
	}

	items, err := s.repo.ListItems(ctx, sessionID)
	if err != nil {
		return AdjustmentReport{}, err
	}

	report := AdjustmentReport{SessionID: sessionID, Applied: []string{}, Failed: []ItemFailure{}}
	for _, it := range items {
		if !it.Counted() || it.Divergence == 0 {
			continue
		}
		_, postErr := s.poster.RecordMovement(ctx, ledger.RecordInput{
			ClinicID:    clinicID,
			ProductID:   it.ProductID,
			Type:        ledger.TypeAjuste,
			Quantity:    *it.PhysicalQuantity,
			Lot:         it.Lot,
			Reason:      fmt.Sprintf("physical count correction (session %s)", session.Number),
			PerformedBy: actorID,
		})
		if postErr != nil {
			s.log().Error("corrective adjustment failed",
				slog.Any("error", postErr),
				slog.String("session_id", sessionID),
				slog.String("product_id", it.ProductID))
			report.Failed = append(report.Failed, ItemFailure{
				ItemID:    it.ID,
				ProductID: it.ProductID,
				Error:     postErr.Error(),
			})
			continue
		}
		report.Applied = append(report.Applied, it.ID)
	}

	if len(report.Failed) == 0 {
		if err := s.repo.UpdateSessionStatus(ctx, clinicID, sessionID, StatusCompleted, s.now()); err != nil {
			return report, err
		}
		report.Completed = true
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ClinicID: clinicID,
			ActorID:  actorID,
			Action:   "stocktake:adjust",
			Entity:   "stocktake_session",
			EntityID: sessionID,
			Meta: map[string]any{
				"applied":   len(report.Applied),
				"failed":    len(report.Failed),
				"completed": report.Completed,
			},
		})
	}
	return report, nil
}

// CancelSession aborts a non-terminal session. No corrective movements are
// posted and none already posted are reverted.
func (s *Service) CancelSession(ctx context.Context, clinicID, sessionID, actorID string) error {
	session, err := s.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		return err
	}
	if session.Status == StatusCompleted || session.Status == StatusCancelled {
		return ErrSessionClosed
	}
	if err := s.repo.UpdateSessionStatus(ctx, clinicID, sessionID, StatusCancelled, s.now()); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ClinicID: clinicID,
			ActorID:  actorID,
			Action:   "stocktake:cancel",
			Entity:   "stocktake_session",
			EntityID: sessionID,
		})
	}
	return nil
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
