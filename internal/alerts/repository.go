package alerts

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// DB is the subset of pgx the repository needs. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so alert writes can ride an enclosing transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type repository struct {
	db DB
}

// NewRepository constructs the PostgreSQL-backed alert repository.
func NewRepository(db DB) Repository {
	return &repository{db: db}
}

func (r *repository) DeleteUnreadByProduct(ctx context.Context, clinicID, productID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM stock_alerts WHERE clinic_id = $1 AND product_id = $2 AND read = FALSE`, clinicID, productID)
	return err
}

func (r *repository) Insert(ctx context.Context, alert Alert) error {
	_, err := r.db.Exec(ctx, `INSERT INTO stock_alerts (id, clinic_id, product_id, type, message, current_quantity, suggested_quantity, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)`,
		alert.ID, alert.ClinicID, alert.ProductID, string(alert.Type), alert.Message,
		alert.CurrentQuantity, alert.SuggestedQuantity, alert.CreatedAt)
	return err
}

func (r *repository) MarkRead(ctx context.Context, clinicID, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE stock_alerts SET read = TRUE WHERE clinic_id = $1 AND id = $2`, clinicID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteRead(ctx context.Context, clinicID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM stock_alerts WHERE clinic_id = $1 AND read = TRUE`, clinicID)
	return err
}

func (r *repository) List(ctx context.Context, clinicID string, unreadOnly bool) ([]Alert, error) {
	query := `SELECT id, clinic_id, product_id, type, message, current_quantity, suggested_quantity, read, created_at
		FROM stock_alerts WHERE clinic_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.ClinicID, &a.ProductID, &a.Type, &a.Message,
			&a.CurrentQuantity, &a.SuggestedQuantity, &a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
