package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

type memoryRepo struct {
	products map[string]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[string]Product)}
}

func (r *memoryRepo) List(ctx context.Context, clinicID string, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if p.ClinicID == clinicID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, clinicID, id string) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.ClinicID != clinicID {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, clinicID, id string, product Product) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	r.products[id] = product
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, clinicID, id string) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func validProduct() Product {
	return Product{
		ClinicID:        "clinic-1",
		Name:            "Composite resin",
		Code:            "RES-001",
		Unit:            "un",
		MinimumQuantity: 10,
		PurchasePrice:   25.9,
		SalePrice:       0,
	}
}

func TestCreateStartsWithZeroBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	in := validProduct()
	in.CurrentQuantity = 99 // callers cannot seed a balance

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.InDelta(t, 0.0, created.CurrentQuantity, 0.0001)
	require.True(t, created.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	cases := []struct {
		name   string
		mutate func(*Product)
	}{
		{name: "missing clinic", mutate: func(p *Product) { p.ClinicID = "" }},
		{name: "blank name", mutate: func(p *Product) { p.Name = "  " }},
		{name: "blank code", mutate: func(p *Product) { p.Code = "" }},
		{name: "blank unit", mutate: func(p *Product) { p.Unit = "" }},
		{name: "negative minimum", mutate: func(p *Product) { p.MinimumQuantity = -1 }},
		{name: "negative price", mutate: func(p *Product) { p.PurchasePrice = -0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validProduct()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestGetScopedByClinic(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "clinic-2", created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.Get(context.Background(), "clinic-1", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestUpdateValidatesInput(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	bad := created
	bad.Name = ""
	require.ErrorIs(t, svc.Update(context.Background(), "clinic-1", created.ID, bad), shared.ErrValidation)

	good := created
	good.MinimumQuantity = 25
	require.NoError(t, svc.Update(context.Background(), "clinic-1", created.ID, good))
}
