package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	jobmetrics "github.com/dentaflow/dentaflow-stock/internal/jobs"
)

// AlertEvaluator re-derives a product's alert set from its current balance.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, clinicID, productID string, current, minimum float64) (*alerts.Alert, error)
}

// LowStockScanJob sweeps every tracked product and reconverges its alert set.
// The sweep backs up the per-movement evaluation: an alert write that failed
// after a commit gets repaired on the next run.
type LowStockScanJob struct {
	pool      *pgxpool.Pool
	evaluator AlertEvaluator
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob constructs the sweep job. metrics may be nil.
func NewLowStockScanJob(pool *pgxpool.Pool, evaluator AlertEvaluator, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{pool: pool, evaluator: evaluator, logger: logger, metrics: metrics}
}

type trackedProduct struct {
	clinicID string
	id       string
	current  float64
	minimum  float64
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *LowStockScanJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("lowstock_scan")

	var payload LowStockScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	products, err := j.tracked(ctx, payload.ClinicID)
	if err != nil {
		return tracker.End(fmt.Errorf("jobs: list tracked products: %w", err))
	}

	raised := map[string]int{}
	var failures int
	for _, p := range products {
		alert, evalErr := j.evaluator.Evaluate(ctx, p.clinicID, p.id, p.current, p.minimum)
		if evalErr != nil {
			failures++
			j.logger.Error("lowstock scan evaluation failed",
				slog.Any("error", evalErr),
				slog.String("clinic_id", p.clinicID),
				slog.String("product_id", p.id))
			continue
		}
		if alert != nil {
			raised[string(alert.Type)]++
		}
	}
	for alertType, count := range raised {
		j.metrics.AddAlerts(alertType, count)
	}

	j.logger.Info("lowstock scan finished",
		slog.Int("products", len(products)),
		slog.Int("raised", raised["CRITICAL"]+raised["MINIMUM"]),
		slog.Int("failures", failures))

	if failures > 0 {
		return tracker.End(fmt.Errorf("jobs: lowstock scan: %d evaluations failed", failures))
	}
	return tracker.End(nil)
}

// tracked lists active products with a configured minimum. Products without a
// minimum never alert, so the sweep skips them at the source.
func (j *LowStockScanJob) tracked(ctx context.Context, clinicID string) ([]trackedProduct, error) {
	query := `SELECT clinic_id, id, current_quantity, minimum_quantity FROM products
		WHERE is_active = TRUE AND minimum_quantity > 0`
	args := []any{}
	if clinicID != "" {
		query += ` AND clinic_id = $1`
		args = append(args, clinicID)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []trackedProduct
	for rows.Next() {
		var p trackedProduct
		if err := rows.Scan(&p.clinicID, &p.id, &p.current, &p.minimum); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
