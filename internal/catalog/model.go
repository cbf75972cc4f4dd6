package catalog

import (
	"time"
)

// Product represents a stockable item of a clinic: consumables, instruments
// and resale goods. Quantity is only ever changed through the movement
// ledger; catalog operations never write current_quantity.
type Product struct {
	ID              string     `json:"id"`
	ClinicID        string     `json:"clinic_id"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	CategoryID      *string    `json:"category_id,omitempty"`
	SupplierID      *string    `json:"supplier_id,omitempty"`
	Unit            string     `json:"unit"`
	MinimumQuantity float64    `json:"minimum_quantity"`
	CurrentQuantity float64    `json:"current_quantity"`
	PurchasePrice   float64    `json:"purchase_price"`
	SalePrice       float64    `json:"sale_price"`
	Lot             *string    `json:"lot,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	CategoryID *string
	SupplierID *string
	IsActive   *bool
	SortBy     string
	SortDir    string
}
