package alerts

import (
	"fmt"
	"time"
)

// AlertType enumerates low-stock severities.
type AlertType string

const (
	// TypeCritical fires when the balance drops to half the minimum or below.
	TypeCritical AlertType = "CRITICAL"
	// TypeMinimum fires when the balance is at or below the minimum.
	TypeMinimum AlertType = "MINIMUM"
)

// Alert is a derived low-stock notice for a product. The unread set for a
// product is fully replaced on every ledger write, never appended to.
type Alert struct {
	ID                string    `json:"id"`
	ClinicID          string    `json:"clinic_id"`
	ProductID         string    `json:"product_id"`
	Type              AlertType `json:"type"`
	Message           string    `json:"message"`
	CurrentQuantity   float64   `json:"current_quantity"`
	SuggestedQuantity float64   `json:"suggested_quantity"`
	Read              bool      `json:"read"`
	CreatedAt         time.Time `json:"created_at"`
}

// Derive classifies a balance against its minimum threshold and returns the
// suggested reorder quantity. Products with a zero minimum carry no
// threshold and never alert.
func Derive(current, minimum float64) (AlertType, float64, bool) {
	if minimum <= 0 {
		return "", 0, false
	}
	if current <= minimum*0.5 {
		return TypeCritical, minimum * 2, true
	}
	if current <= minimum {
		return TypeMinimum, minimum * 1.5, true
	}
	return "", 0, false
}

func message(t AlertType, current, minimum float64) string {
	if t == TypeCritical {
		return fmt.Sprintf("stock critically low: %g on hand, minimum %g", current, minimum)
	}
	return fmt.Sprintf("stock at or below minimum: %g on hand, minimum %g", current, minimum)
}
