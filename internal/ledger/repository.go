package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	"github.com/dentaflow/dentaflow-stock/internal/catalog"
	"github.com/dentaflow/dentaflow-stock/internal/platform/db"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Repository persists movements and balances in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a RepeatableRead transaction with
// repositories bound to that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

// GetProductForUpdate locks the product row so concurrent movements on the
// same product serialize.
func (r *txRepo) GetProductForUpdate(ctx context.Context, clinicID, productID string) (catalog.Product, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, clinic_id, name, code, category_id, supplier_id, unit, minimum_quantity, current_quantity, purchase_price, sale_price, lot, expiry_date, is_active, created_at, updated_at
		FROM products WHERE clinic_id = $1 AND id = $2 FOR UPDATE`, clinicID, productID)

	var p catalog.Product
	err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Code, &p.CategoryID, &p.SupplierID, &p.Unit,
		&p.MinimumQuantity, &p.CurrentQuantity, &p.PurchasePrice, &p.SalePrice,
		&p.Lot, &p.ExpiryDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *txRepo) SetProductQuantity(ctx context.Context, clinicID, productID string, quantity float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET current_quantity = $1, updated_at = NOW() WHERE clinic_id = $2 AND id = $3`, quantity, clinicID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Alerts returns an alert repository bound to this transaction.
func (r *txRepo) Alerts() alerts.Repository {
	return alerts.NewRepository(r.tx)
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (id, clinic_id, product_id, type, quantity, lot, expiry_date, reason, unit_value, total_value, supplier_id, invoice_number, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID, m.ClinicID, m.ProductID, string(m.Type), m.Quantity, m.Lot, m.ExpiryDate, m.Reason,
		m.UnitValue, m.TotalValue, m.SupplierID, m.InvoiceNumber, m.PerformedBy, m.CreatedAt)
	return err
}

// ListByProduct returns movements for a product, newest first.
func (r *Repository) ListByProduct(ctx context.Context, clinicID, productID string, filter HistoryFilter) ([]Movement, error) {
	query := `SELECT id, clinic_id, product_id, type, quantity, lot, expiry_date, reason, unit_value, total_value, supplier_id, invoice_number, performed_by, created_at
		FROM stock_movements WHERE clinic_id = $1 AND product_id = $2`
	args := []any{clinicID, productID}
	argCount := 2

	if !filter.From.IsZero() {
		argCount++
		query += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND created_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		var movementType string
		if err := rows.Scan(&m.ID, &m.ClinicID, &m.ProductID, &movementType, &m.Quantity, &m.Lot, &m.ExpiryDate,
			&m.Reason, &m.UnitValue, &m.TotalValue, &m.SupplierID, &m.InvoiceNumber, &m.PerformedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(movementType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
