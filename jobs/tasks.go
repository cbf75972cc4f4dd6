package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan re-evaluates the alert set of every tracked product.
	TaskLowStockScan = "stock:lowstock_scan"
	// TaskForecastWarmup primes the replenishment suggestion cache.
	TaskForecastWarmup = "stock:forecast_warmup"
)

// LowStockScanPayload scopes a sweep run. An empty clinic scans all clinics.
type LowStockScanPayload struct {
	ClinicID string `json:"clinic_id"`
}

// ForecastWarmupPayload scopes a warmup run. An empty clinic warms all clinics.
type ForecastWarmupPayload struct {
	ClinicID string `json:"clinic_id"`
}

// NewLowStockScanTask constructs an Asynq task for the alert sweep.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// NewForecastWarmupTask constructs an Asynq task for the cache warmup.
func NewForecastWarmupTask(payload ForecastWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskForecastWarmup, data), nil
}
