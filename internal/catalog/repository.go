package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Repository persists products in PostgreSQL. Every query is scoped by
// clinic id.
type Repository interface {
	List(ctx context.Context, clinicID string, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, clinicID, id string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, clinicID, id string, product Product) error
	Delete(ctx context.Context, clinicID, id string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed product repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, clinic_id, name, code, category_id, supplier_id, unit, minimum_quantity, current_quantity, purchase_price, sale_price, lot, expiry_date, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Code, &p.CategoryID, &p.SupplierID, &p.Unit,
		&p.MinimumQuantity, &p.CurrentQuantity, &p.PurchasePrice, &p.SalePrice,
		&p.Lot, &p.ExpiryDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, clinicID string, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE clinic_id = $1`
	args := []any{clinicID}
	argCount := 1

	if filters.CategoryID != nil {
		argCount++
		where += ` AND category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.SupplierID != nil {
		argCount++
		where += ` AND supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.SupplierID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, clinicID, id string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE clinic_id = $1 AND id = $2`, clinicID, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	query := `INSERT INTO products (id, clinic_id, name, code, category_id, supplier_id, unit, minimum_quantity, current_quantity, purchase_price, sale_price, lot, expiry_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.Exec(ctx, query,
		product.ID, product.ClinicID, product.Name, product.Code, product.CategoryID, product.SupplierID, product.Unit,
		product.MinimumQuantity, product.CurrentQuantity, product.PurchasePrice, product.SalePrice,
		product.Lot, product.ExpiryDate, product.IsActive, now, now)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

// Update writes master data only; current_quantity belongs to the ledger.
func (r *repository) Update(ctx context.Context, clinicID, id string, product Product) error {
	query := `UPDATE products SET name = $1, code = $2, category_id = $3, supplier_id = $4, unit = $5, minimum_quantity = $6, purchase_price = $7, sale_price = $8, lot = $9, expiry_date = $10, is_active = $11, updated_at = $12 WHERE clinic_id = $13 AND id = $14`
	tag, err := r.db.Exec(ctx, query,
		product.Name, product.Code, product.CategoryID, product.SupplierID, product.Unit,
		product.MinimumQuantity, product.PurchasePrice, product.SalePrice,
		product.Lot, product.ExpiryDate, product.IsActive, time.Now().UTC(), clinicID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, clinicID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE clinic_id = $1 AND id = $2`, clinicID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "quantity":
		return "current_quantity " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
