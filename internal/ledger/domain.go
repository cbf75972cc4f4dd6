package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// MovementType enumerates the stock-affecting event kinds.
type MovementType string

const (
	// TypeEntrada is a purchase or other inbound receipt.
	TypeEntrada MovementType = "ENTRADA"
	// TypeSaida is a consumption or sale outbound.
	TypeSaida MovementType = "SAIDA"
	// TypeAjuste sets the balance to an absolute quantity (physical count correction).
	TypeAjuste MovementType = "AJUSTE"
	// TypeDevolucao is a return to stock.
	TypeDevolucao MovementType = "DEVOLUCAO"
	// TypePerda is a loss (breakage, expiry).
	TypePerda MovementType = "PERDA"
)

var (
	// ErrUnknownMovementType indicates a type outside the five supported values.
	ErrUnknownMovementType = fmt.Errorf("ledger: unknown movement type: %w", shared.ErrValidation)
	// ErrNonPositiveQuantity indicates quantity <= 0 for delta movements.
	// AJUSTE is exempt at zero: its quantity is an absolute target, and a
	// physical count of zero is a legitimate correction.
	ErrNonPositiveQuantity = fmt.Errorf("ledger: quantity must be > 0: %w", shared.ErrValidation)
	// ErrReasonRequired indicates a missing reason.
	ErrReasonRequired = fmt.Errorf("ledger: reason required: %w", shared.ErrValidation)
)

type effectKind int

const (
	effectAdd effectKind = iota
	effectSubtract
	effectSet
)

// Effect describes how a movement changes a product balance. The kind is
// chosen once from the movement type; the balance step never re-interprets
// the type. AJUSTE carries an absolute target, not a delta.
type Effect struct {
	kind effectKind
}

// EffectOf maps a movement type to its balance effect.
func EffectOf(t MovementType) (Effect, error) {
	switch t {
	case TypeEntrada, TypeDevolucao:
		return Effect{kind: effectAdd}, nil
	case TypeSaida, TypePerda:
		return Effect{kind: effectSubtract}, nil
	case TypeAjuste:
		return Effect{kind: effectSet}, nil
	default:
		return Effect{}, ErrUnknownMovementType
	}
}

// Apply computes the resulting balance. Subtractions clamp at zero so a
// negative balance is structurally impossible.
func (e Effect) Apply(current, quantity float64) float64 {
	switch e.kind {
	case effectAdd:
		return current + quantity
	case effectSubtract:
		next := current - quantity
		if next < 0 {
			return 0
		}
		return next
	default:
		return quantity
	}
}

// Movement is an immutable, append-only record of a stock-affecting event.
// Corrections are new movements, never edits.
type Movement struct {
	ID            string       `json:"id"`
	ClinicID      string       `json:"clinic_id"`
	ProductID     string       `json:"product_id"`
	Type          MovementType `json:"type"`
	Quantity      float64      `json:"quantity"`
	Lot           *string      `json:"lot,omitempty"`
	ExpiryDate    *time.Time   `json:"expiry_date,omitempty"`
	Reason        string       `json:"reason"`
	UnitValue     *float64     `json:"unit_value,omitempty"`
	TotalValue    *float64     `json:"total_value,omitempty"`
	SupplierID    *string      `json:"supplier_id,omitempty"`
	InvoiceNumber *string      `json:"invoice_number,omitempty"`
	PerformedBy   string       `json:"performed_by"`
	CreatedAt     time.Time    `json:"created_at"`
}

// RecordInput captures a movement request before it is applied.
type RecordInput struct {
	ClinicID      string
	ProductID     string
	Type          MovementType
	Quantity      float64
	Lot           *string
	ExpiryDate    *time.Time
	Reason        string
	UnitValue     *float64
	SupplierID    *string
	InvoiceNumber *string
	PerformedBy   string
}

// Validate rejects bad input before any write happens.
func (in RecordInput) Validate() error {
	if in.ClinicID == "" || in.ProductID == "" {
		return fmt.Errorf("ledger: clinic and product required: %w", shared.ErrValidation)
	}
	effect, err := EffectOf(in.Type)
	if err != nil {
		return err
	}
	if in.Quantity < 0 || (in.Quantity == 0 && effect.kind != effectSet) {
		return ErrNonPositiveQuantity
	}
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// HistoryFilter narrows ledger listings per product.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}
