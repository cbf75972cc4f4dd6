package audit

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit trail. Writes happen through shared.AuditLogger.
type Repository interface {
	Timeline(ctx context.Context, clinicID string, filters TimelineFilters) ([]Entry, int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the audit repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Timeline(ctx context.Context, clinicID string, filters TimelineFilters) ([]Entry, int, error) {
	where := ` WHERE clinic_id = $1`
	args := []any{clinicID}
	argCount := 1

	if filters.Entity != "" {
		argCount++
		where += ` AND entity = $` + strconv.Itoa(argCount)
		args = append(args, filters.Entity)
	}
	if filters.EntityID != "" {
		argCount++
		where += ` AND entity_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.EntityID)
	}
	if filters.Action != "" {
		argCount++
		where += ` AND action = $` + strconv.Itoa(argCount)
		args = append(args, filters.Action)
	}
	if !filters.From.IsZero() {
		argCount++
		where += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		where += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, filters.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := `SELECT id, clinic_id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs` + where +
		` ORDER BY occurred_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
