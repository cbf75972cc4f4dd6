package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Repository reads the balances and consumption history the engine needs.
// It never writes.
type Repository interface {
	CurrentQuantity(ctx context.Context, clinicID, productID string) (float64, error)
	ConsumptionSince(ctx context.Context, clinicID, productID string, since time.Time) (float64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the read-only forecast repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) CurrentQuantity(ctx context.Context, clinicID, productID string) (float64, error) {
	var quantity float64
	err := r.db.QueryRow(ctx, `SELECT current_quantity FROM products WHERE clinic_id = $1 AND id = $2`, clinicID, productID).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return quantity, err
}

// ConsumptionSince sums outbound quantities (SAIDA and PERDA) from the window start.
func (r *repository) ConsumptionSince(ctx context.Context, clinicID, productID string, since time.Time) (float64, error) {
	var sum float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_movements
		WHERE clinic_id = $1 AND product_id = $2 AND type IN ('SAIDA', 'PERDA') AND created_at >= $3`,
		clinicID, productID, since).Scan(&sum)
	return sum, err
}
