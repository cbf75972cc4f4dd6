package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Service wraps product master-data rules.
type Service struct {
	repo Repository
}

// NewService constructs the catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, clinicID string, filters ListFilters) ([]Product, int, error) {
	if clinicID == "" {
		return nil, 0, fmt.Errorf("catalog: clinic required: %w", shared.ErrValidation)
	}
	return s.repo.List(ctx, clinicID, filters)
}

func (s *Service) Get(ctx context.Context, clinicID, id string) (Product, error) {
	if clinicID == "" || id == "" {
		return Product{}, fmt.Errorf("catalog: clinic and product id required: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, clinicID, id)
}

// Create registers a new product. The opening balance is zero; initial stock
// arrives through an ENTRADA movement so the ledger stays complete.
func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	product.ID = uuid.NewString()
	product.CurrentQuantity = 0
	product.IsActive = true
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, clinicID, id string, product Product) error {
	if id == "" {
		return fmt.Errorf("catalog: product id required: %w", shared.ErrValidation)
	}
	product.ClinicID = clinicID
	if err := validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, clinicID, id, product)
}

func (s *Service) Delete(ctx context.Context, clinicID, id string) error {
	if clinicID == "" || id == "" {
		return fmt.Errorf("catalog: clinic and product id required: %w", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, clinicID, id)
}

func validate(product Product) error {
	if product.ClinicID == "" {
		return fmt.Errorf("catalog: clinic required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("catalog: name required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(product.Code) == "" {
		return fmt.Errorf("catalog: code required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(product.Unit) == "" {
		return fmt.Errorf("catalog: unit required: %w", shared.ErrValidation)
	}
	if product.MinimumQuantity < 0 {
		return fmt.Errorf("catalog: minimum quantity must be >= 0: %w", shared.ErrValidation)
	}
	if product.PurchasePrice < 0 || product.SalePrice < 0 {
		return fmt.Errorf("catalog: prices must be >= 0: %w", shared.ErrValidation)
	}
	return nil
}
