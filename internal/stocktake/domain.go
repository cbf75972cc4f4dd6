package stocktake

import (
	"fmt"
	"math"
	"time"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// SessionType enumerates count session scopes.
type SessionType string

const (
	// TypeGeneral counts the whole catalog.
	TypeGeneral SessionType = "GENERAL"
	// TypePartial counts a category or an explicit product list.
	TypePartial SessionType = "PARTIAL"
	// TypeCyclic is a recurring partial count.
	TypeCyclic SessionType = "CYCLIC"
)

// SessionStatus enumerates the count session lifecycle.
type SessionStatus string

const (
	// StatusPlanned means no item has been counted yet.
	StatusPlanned SessionStatus = "PLANNED"
	// StatusInProgress means counting has started.
	StatusInProgress SessionStatus = "IN_PROGRESS"
	// StatusCompleted means corrective adjustments were applied. Terminal.
	StatusCompleted SessionStatus = "COMPLETED"
	// StatusCancelled aborts the session. Terminal.
	StatusCancelled SessionStatus = "CANCELLED"
)

// Criticality tiers a divergence by absolute percentage.
type Criticality string

const (
	CriticalityNone   Criticality = ""
	CriticalityLow    Criticality = "LOW"
	CriticalityMedium Criticality = "MEDIUM"
	CriticalityHigh   Criticality = "HIGH"
)

var (
	// ErrSessionClosed indicates the session already reached a terminal state.
	ErrSessionClosed = fmt.Errorf("stocktake: session closed: %w", shared.ErrValidation)
	// ErrNothingCounted indicates an adjustment run before any item was counted.
	ErrNothingCounted = fmt.Errorf("stocktake: no items counted yet: %w", shared.ErrValidation)
	// ErrAdjustmentRunning indicates another adjustment run holds the session lock.
	ErrAdjustmentRunning = fmt.Errorf("stocktake: adjustment run already in progress: %w", shared.ErrConflict)
	// ErrUnknownSessionType indicates a type outside the three supported values.
	ErrUnknownSessionType = fmt.Errorf("stocktake: unknown session type: %w", shared.ErrValidation)
	// ErrNegativeCount indicates a physical quantity below zero.
	ErrNegativeCount = fmt.Errorf("stocktake: physical quantity must be >= 0: %w", shared.ErrValidation)
)

// Session is one physical count run against system balances.
type Session struct {
	ID               string        `json:"id"`
	ClinicID         string        `json:"clinic_id"`
	Number           string        `json:"number"`
	Date             time.Time     `json:"date"`
	Type             SessionType   `json:"type"`
	Status           SessionStatus `json:"status"`
	Responsible      string        `json:"responsible"`
	TotalItems       int           `json:"total_items"`
	CountedItems     int           `json:"counted_items"`
	DivergencesFound int           `json:"divergences_found"`
	DivergenceValue  float64       `json:"divergence_value"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Item snapshots one product inside a session. Divergence fields are defined
// only once PhysicalQuantity is set.
type Item struct {
	ID                string      `json:"id"`
	SessionID         string      `json:"session_id"`
	ProductID         string      `json:"product_id"`
	SystemQuantity    float64     `json:"system_quantity"`
	PhysicalQuantity  *float64    `json:"physical_quantity,omitempty"`
	Divergence        float64     `json:"divergence"`
	DivergencePercent *float64    `json:"divergence_percent,omitempty"`
	UnitValue         float64     `json:"unit_value"`
	DivergenceValue   float64     `json:"divergence_value"`
	Lot               *string     `json:"lot,omitempty"`
	CountedBy         *string     `json:"counted_by,omitempty"`
	CountedAt         *time.Time  `json:"counted_at,omitempty"`
	Criticality       Criticality `json:"criticality,omitempty"`
}

// Counted reports whether the item has a physical count.
func (i Item) Counted() bool {
	return i.PhysicalQuantity != nil
}

// ApplyCount sets the physical quantity and derives the divergence fields.
// Recounting the same item is last-write-wins.
func (i Item) ApplyCount(physical float64, countedBy string, at time.Time) Item {
	i.PhysicalQuantity = &physical
	i.Divergence = physical - i.SystemQuantity
	i.DivergencePercent = nil
	if i.SystemQuantity != 0 {
		percent := i.Divergence / i.SystemQuantity * 100
		i.DivergencePercent = &percent
	}
	i.DivergenceValue = i.Divergence * i.UnitValue
	i.CountedBy = &countedBy
	i.CountedAt = &at
	i.Criticality = ClassifyDivergence(i.Divergence, i.DivergencePercent)
	return i
}

// ClassifyDivergence tiers a divergence by absolute percentage: >=20% HIGH,
// >=10% MEDIUM, >0% LOW. The percent is undefined when the system snapshot
// was zero; any surplus found against a zero snapshot is HIGH, since phantom
// stock always deserves review.
func ClassifyDivergence(divergence float64, percent *float64) Criticality {
	if divergence == 0 {
		return CriticalityNone
	}
	if percent == nil {
		return CriticalityHigh
	}
	abs := math.Abs(*percent)
	switch {
	case abs >= 20:
		return CriticalityHigh
	case abs >= 10:
		return CriticalityMedium
	case abs > 0:
		return CriticalityLow
	default:
		return CriticalityNone
	}
}

// AdjustmentReport describes the outcome of one adjustment run. Partial
// failures list the exact unresolved items so callers can retry only those.
type AdjustmentReport struct {
	SessionID string        `json:"session_id"`
	Applied   []string      `json:"applied"`
	Failed    []ItemFailure `json:"failed"`
	Completed bool          `json:"completed"`
}

// ItemFailure identifies one item whose corrective movement failed.
type ItemFailure struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}
