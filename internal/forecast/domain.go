package forecast

import "time"

const (
	// consumptionWindowDays is the trailing window used to average consumption.
	consumptionWindowDays = 30
	// reorderHorizonDays is the coverage below which a suggestion is produced.
	reorderHorizonDays = 15
	// coverageTargetDays is the stock coverage a suggestion aims for.
	coverageTargetDays = 60
)

// Suggestion is a replenishment recommendation derived from trailing
// consumption. SuggestedQuantity is zero when coverage is comfortable.
type Suggestion struct {
	ProductID         string    `json:"product_id"`
	CurrentQuantity   float64   `json:"current_quantity"`
	DailyAverage      float64   `json:"daily_average"`
	DaysOfStock       float64   `json:"days_of_stock"`
	SuggestedQuantity float64   `json:"suggested_quantity"`
	WindowDays        int       `json:"window_days"`
	GeneratedAt       time.Time `json:"generated_at"`
}
