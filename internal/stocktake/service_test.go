package stocktake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dentaflow/dentaflow-stock/internal/ledger"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

type memoryRepo struct {
	sessions map[string]Session
	items    map[string][]Item
	scope    []ScopeProduct
}

func newMemoryRepo(scope ...ScopeProduct) *memoryRepo {
	return &memoryRepo{
		sessions: make(map[string]Session),
		items:    make(map[string][]Item),
		scope:    scope,
	}
}

func (r *memoryRepo) InsertSession(ctx context.Context, session Session, items []Item) error {
	r.sessions[session.ID] = session
	r.items[session.ID] = append([]Item(nil), items...)
	return nil
}

func (r *memoryRepo) GetSession(ctx context.Context, clinicID, sessionID string) (Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok || s.ClinicID != clinicID {
		return Session{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) ListSessions(ctx context.Context, clinicID string, page shared.Pagination) ([]Session, error) {
	var out []Session
	for _, s := range r.sessions {
		if s.ClinicID == clinicID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListItems(ctx context.Context, sessionID string) ([]Item, error) {
	return append([]Item(nil), r.items[sessionID]...), nil
}

func (r *memoryRepo) GetItem(ctx context.Context, sessionID, itemID string) (Item, error) {
	for _, it := range r.items[sessionID] {
		if it.ID == itemID {
			return it, nil
		}
	}
	return Item{}, shared.ErrNotFound
}

func (r *memoryRepo) UpdateItemCount(ctx context.Context, item Item) error {
	items := r.items[item.SessionID]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memoryRepo) UpdateSessionProgress(ctx context.Context, session Session) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *memoryRepo) UpdateSessionStatus(ctx context.Context, clinicID, sessionID string, status SessionStatus, at time.Time) error {
	s, ok := r.sessions[sessionID]
	if !ok {
		return shared.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = at
	r.sessions[sessionID] = s
	return nil
}

func (r *memoryRepo) ProductsInScope(ctx context.Context, clinicID string, scope Scope) ([]ScopeProduct, error) {
	return r.scope, nil
}

type fakePoster struct {
	inputs  []ledger.RecordInput
	failFor map[string]error
}

func (p *fakePoster) RecordMovement(ctx context.Context, in ledger.RecordInput) (ledger.Result, error) {
	if err, ok := p.failFor[in.ProductID]; ok {
		return ledger.Result{}, err
	}
	p.inputs = append(p.inputs, in)
	return ledger.Result{}, nil
}

type fakeLocker struct {
	held     map[string]bool
	acquires int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.acquires++
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	delete(l.held, key)
	return nil
}

func newTestService(repo *memoryRepo, poster *fakePoster, locker RunLocker) *Service {
	if locker == nil {
		locker = newFakeLocker()
	}
	return NewService(repo, poster, locker, nil, nil)
}

func createSession(t *testing.T, svc *Service) Session {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), "clinic-1", CreateInput{
		Number:      "INV-2025-001",
		Type:        TypeGeneral,
		Responsible: "user-1",
	})
	require.NoError(t, err)
	return session
}

func TestCreateSessionSnapshotsScope(t *testing.T) {
	repo := newMemoryRepo(
		ScopeProduct{ID: "p1", Quantity: 150, UnitValue: 2},
		ScopeProduct{ID: "p2", Quantity: 0, UnitValue: 5},
	)
	svc := newTestService(repo, &fakePoster{}, nil)

	session := createSession(t, svc)

	require.Equal(t, StatusPlanned, session.Status)
	require.Equal(t, 2, session.TotalItems)
	items := repo.items[session.ID]
	require.Len(t, items, 2)
	require.InDelta(t, 150.0, items[0].SystemQuantity, 0.0001)
	require.False(t, items[0].Counted())
}

func TestCreateSessionValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(ScopeProduct{ID: "p1"}), &fakePoster{}, nil)

	_, err := svc.CreateSession(context.Background(), "clinic-1", CreateInput{
		Number: "INV-1", Type: SessionType("FULL"), Responsible: "user-1",
	})
	require.ErrorIs(t, err, ErrUnknownSessionType)

	_, err = svc.CreateSession(context.Background(), "clinic-1", CreateInput{
		Number: " ", Type: TypeGeneral, Responsible: "user-1",
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	empty := newTestService(newMemoryRepo(), &fakePoster{}, nil)
	_, err = empty.CreateSession(context.Background(), "clinic-1", CreateInput{
		Number: "INV-1", Type: TypeGeneral, Responsible: "user-1",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordCountTracksProgress(t *testing.T) {
	repo := newMemoryRepo(
		ScopeProduct{ID: "p1", Quantity: 150, UnitValue: 2},
		ScopeProduct{ID: "p2", Quantity: 80, UnitValue: 1},
	)
	svc := newTestService(repo, &fakePoster{}, nil)
	session := createSession(t, svc)
	items := repo.items[session.ID]

	item, err := svc.RecordCount(context.Background(), "clinic-1", session.ID, items[0].ID, 145, "user-2")
	require.NoError(t, err)
	require.InDelta(t, -5.0, item.Divergence, 0.0001)
	require.Equal(t, CriticalityLow, item.Criticality)

	updated := repo.sessions[session.ID]
	require.Equal(t, StatusInProgress, updated.Status)
	require.Equal(t, 1, updated.CountedItems)
	require.Equal(t, 1, updated.DivergencesFound)
	require.InDelta(t, -10.0, updated.DivergenceValue, 0.0001)

	// Exact count: no divergence recorded.
	_, err = svc.RecordCount(context.Background(), "clinic-1", session.ID, items[1].ID, 80, "user-2")
	require.NoError(t, err)
	updated = repo.sessions[session.ID]
	require.Equal(t, 2, updated.CountedItems)
	require.Equal(t, 1, updated.DivergencesFound)
}

func TestRecordCountRejectsNegative(t *testing.T) {
	repo := newMemoryRepo(ScopeProduct{ID: "p1", Quantity: 10})
	svc := newTestService(repo, &fakePoster{}, nil)
	session := createSession(t, svc)
	items := repo.items[session.ID]

	_, err := svc.RecordCount(context.Background(), "clinic-1", session.ID, items[0].ID, -1, "user-2")
	require.ErrorIs(t, err, ErrNegativeCount)
}

func TestRecordCountRejectsClosedSession(t *testing.T) {
	repo := newMemoryRepo(ScopeProduct{ID: "p1", Quantity: 10})
	svc := newTestService(repo, &fakePoster{}, nil)
	session := createSession(t, svc)
	items := repo.items[session.ID]

	require.NoError(t, svc.CancelSession(context.Background(), "clinic-1", session.ID, "user-1"))

	_, err := svc.RecordCount(context.Background(), "clinic-1", session.ID, items[0].ID, 10, "user-2")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestApplyAdjustmentsPostsAbsoluteTargets(t *testing.T) {
	repo := newMemoryRepo(
		ScopeProduct{ID: "p1", Quantity: 150, UnitValue: 2},
		ScopeProduct{ID: "p2", Quantity: 80, UnitValue: 1},
		ScopeProduct{ID: "p3", Quantity: 9, UnitValue: 1},
	)
	poster := &fakePoster{}
	svc := newTestService(repo, poster, nil)
	session := createSession(t, svc)
	items := repo.items[session.ID]

	_, err := svc.RecordCount(context.Background(), "clinic-1", session.ID, items[0].ID, 145, "u")
	require.NoError(t, err)
	_, err = svc.RecordCount(context.Background(), "clinic-1", session.ID, items[1].ID, 80, "u")
	require.NoError(t, err)
	_, err = svc.RecordCount(context.Background(), "clinic-1", session.ID, items[2].ID, 0, "u")
	require.NoError(t, err)

	report, err := svc.ApplyAdjustments(context.Background(), "clinic-1", session.ID, "user-1")
	require.NoError(t, err)
	require.True(t, report.Completed)
	require.Len(t, report.Applied, 2, "only divergent items adjust")
	require.Empty(t, report.Failed)

	require.Len(t, poster.inputs, 2)
	for _, in := range poster.inputs {
		require.Equal(t, ledger.TypeAjuste, in.Type)
		require.Equal(t, "user-1", in.PerformedBy)
	}
	require.InDelta(t, 145.0, poster.inputs[0].Quantity, 0.0001)
	require.InDelta(t, 0.0, poster.inputs[1].Quantity, 0.0001, "counted zero posts a zero target")

	require.Equal(t, StatusCompleted, repo.sessions[session.ID].Status)
}

func TestApplyAdjustmentsPartialFailure(t *testing.T) {
	repo := newMemoryRepo(
		ScopeProduct{ID: "p1", Quantity: 100, UnitValue: 1},
		ScopeProduct{ID: "p2", Quantity: 50, UnitValue: 1},
	)
	poster := &fakePoster{failFor: map[string]error{"p2": errors.New("row locked")}}
	svc := newTestService(repo, poster, nil)
	session := createSession(t, svc)
	items := repo.items[session.ID]

	_, err := svc.RecordCount(context.Background(), "clinic-1", session.ID, items[0].ID, 90, "u")
	require.NoError(t, err)
	_, err = svc.RecordCount(context.Background(), "clinic-1", session.ID, items[1].ID, 40, "u")
	require.NoError(t, err)

	report, err := svc.ApplyAdjustments(context.Background(), "clinic-1", session.ID, "user-1")
	require.NoError(t, err, "partial failure is a report, not an error")
	require.False(t, report.Completed)
	require.Len(t, report.Applied, 1)
	require.Len(t, report.Failed, 1)
	require.Equal(t, "p2", report.Failed[0].ProductID)
	require.Contains(t, report.Failed[0].Error, "row locked")

	// Session stays open so the failed item can be retried.
	require.Equal(t, StatusInProgress, repo.sessions[session.ID].Status)

	// Retry after the failure clears: divergent items repost, which is safe
	// because adjustment targets are absolute.
	poster.failFor = nil
	report, err = svc.ApplyAdjustments(context.Background(), "clinic-1", session.ID, "user-1")
	require.NoError(t, err)
	require.True(t, report.Completed)
	require.Equal(t, StatusCompleted, repo.sessions[session.ID].Status)
}

func TestApplyAdjustmentsRequiresCounts(t *testing.T) {
	repo := newMemoryRepo(ScopeProduct{ID: "p1", Quantity: 10})
	svc := newTestService(repo, &fakePoster{}, nil)
	session := createSession(t, svc)

	_, err := svc.ApplyAdjustments(context.Background(), "clinic-1", session.ID, "user-1")
	require.ErrorIs(t, err, ErrNothingCounted)
}

func TestApplyAdjustmentsSerializesRuns(t *testing.T) {
	repo := newMemoryRepo(ScopeProduct{ID: "p1", Quantity: 10})
	locker := newFakeLocker()
	svc := newTestService(repo, &fakePoster{}, locker)
	session := createSession(t, svc)
	items := repo.items[session.ID]

	_, err := svc.RecordCount(context.Background(), "clinic-1", session.ID, items[0].ID, 8, "u")
	require.NoError(t, err)

	// Simulate a concurrent holder.
	locker.held[shared.StocktakeLockKey(session.ID)] = true

	_, err = svc.ApplyAdjustments(context.Background(), "clinic-1", session.ID, "user-1")
	require.ErrorIs(t, err, ErrAdjustmentRunning)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestApplyAdjustmentsRejectsTerminalSession(t *testing.T) {
	repo := newMemoryRepo(ScopeProduct{ID: "p1", Quantity: 10})
	svc := newTestService(repo, &fakePoster{}, nil)
	session := createSession(t, svc)

	require.NoError(t, svc.CancelSession(context.Background(), "clinic-1", session.ID, "user-1"))

	_, err := svc.ApplyAdjustments(context.Background(), "clinic-1", session.ID, "user-1")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestCancelSessionTerminalIsFinal(t *testing.T) {
	repo := newMemoryRepo(ScopeProduct{ID: "p1", Quantity: 10})
	svc := newTestService(repo, &fakePoster{}, nil)
	session := createSession(t, svc)

	require.NoError(t, svc.CancelSession(context.Background(), "clinic-1", session.ID, "user-1"))
	require.ErrorIs(t, svc.CancelSession(context.Background(), "clinic-1", session.ID, "user-1"), ErrSessionClosed)
}
