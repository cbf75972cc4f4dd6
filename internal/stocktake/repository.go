package stocktake

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/dentaflow-stock/internal/platform/db"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// PgRepository persists sessions and items in PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the stocktake repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const sessionColumns = `id, clinic_id, number, date, type, status, responsible, total_items, counted_items, divergences_found, divergence_value, created_at, updated_at`

const itemColumns = `id, session_id, product_id, system_quantity, physical_quantity, divergence, divergence_percent, unit_value, divergence_value, lot, counted_by, counted_at`

// InsertSession writes the session header and all item snapshots atomically.
func (r *PgRepository) InsertSession(ctx context.Context, session Session, items []Item) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO stock_take_sessions (`+sessionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			session.ID, session.ClinicID, session.Number, session.Date, string(session.Type), string(session.Status),
			session.Responsible, session.TotalItems, session.CountedItems, session.DivergencesFound,
			session.DivergenceValue, session.CreatedAt, session.UpdatedAt)
		if err != nil {
			return err
		}
		for _, it := range items {
			_, err := tx.Exec(ctx, `INSERT INTO stock_take_items (`+itemColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				it.ID, it.SessionID, it.ProductID, it.SystemQuantity, it.PhysicalQuantity, it.Divergence,
				it.DivergencePercent, it.UnitValue, it.DivergenceValue, it.Lot, it.CountedBy, it.CountedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgRepository) GetSession(ctx context.Context, clinicID, sessionID string) (Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM stock_take_sessions WHERE clinic_id = $1 AND id = $2`, clinicID, sessionID)
	return scanSession(row)
}

// ListSessions pages a clinic's sessions, newest first.
func (r *PgRepository) ListSessions(ctx context.Context, clinicID string, page shared.Pagination) ([]Session, error) {
	offset := (page.Page - 1) * page.PerPage
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM stock_take_sessions
		WHERE clinic_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, clinicID, page.PerPage, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *PgRepository) ListItems(ctx context.Context, sessionID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM stock_take_items WHERE session_id = $1 ORDER BY product_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PgRepository) GetItem(ctx context.Context, sessionID, itemID string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_take_items WHERE session_id = $1 AND id = $2`, sessionID, itemID)
	return scanItem(row)
}

func (r *PgRepository) UpdateItemCount(ctx context.Context, it Item) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_take_items SET physical_quantity = $1, divergence = $2,
		divergence_percent = $3, divergence_value = $4, counted_by = $5, counted_at = $6
		WHERE session_id = $7 AND id = $8`,
		it.PhysicalQuantity, it.Divergence, it.DivergencePercent, it.DivergenceValue,
		it.CountedBy, it.CountedAt, it.SessionID, it.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PgRepository) UpdateSessionProgress(ctx context.Context, s Session) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_take_sessions SET status = $1, counted_items = $2,
		divergences_found = $3, divergence_value = $4, updated_at = $5
		WHERE clinic_id = $6 AND id = $7`,
		string(s.Status), s.CountedItems, s.DivergencesFound, s.DivergenceValue, s.UpdatedAt, s.ClinicID, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PgRepository) UpdateSessionStatus(ctx context.Context, clinicID, sessionID string, status SessionStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_take_sessions SET status = $1, updated_at = $2 WHERE clinic_id = $3 AND id = $4`,
		string(status), at, clinicID, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ProductsInScope snapshots the active products a session will count.
func (r *PgRepository) ProductsInScope(ctx context.Context, clinicID string, scope Scope) ([]ScopeProduct, error) {
	query := `SELECT id, current_quantity, COALESCE(purchase_price, 0), lot FROM products WHERE clinic_id = $1 AND is_active = TRUE`
	args := []any{clinicID}
	argCount := 1

	if scope.CategoryID != nil {
		argCount++
		query += ` AND category_id = $` + strconv.Itoa(argCount)
		args = append(args, *scope.CategoryID)
	}
	if len(scope.ProductIDs) > 0 {
		argCount++
		query += ` AND id = ANY($` + strconv.Itoa(argCount) + `)`
		args = append(args, scope.ProductIDs)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ScopeProduct
	for rows.Next() {
		var p ScopeProduct
		if err := rows.Scan(&p.ID, &p.Quantity, &p.UnitValue, &p.Lot); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	var sessionType, status string
	err := row.Scan(&s.ID, &s.ClinicID, &s.Number, &s.Date, &sessionType, &status, &s.Responsible,
		&s.TotalItems, &s.CountedItems, &s.DivergencesFound, &s.DivergenceValue, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, shared.ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	s.Type = SessionType(sessionType)
	s.Status = SessionStatus(status)
	return s, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.SystemQuantity, &it.PhysicalQuantity,
		&it.Divergence, &it.DivergencePercent, &it.UnitValue, &it.DivergenceValue, &it.Lot, &it.CountedBy, &it.CountedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	it.Criticality = ClassifyDivergence(it.Divergence, it.DivergencePercent)
	return it, nil
}
