package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/dentaflow/dentaflow-stock/internal/forecast"
	jobmetrics "github.com/dentaflow/dentaflow-stock/internal/jobs"
)

// ForecastSuggester computes a replenishment suggestion, caching it as a side
// effect.
type ForecastSuggester interface {
	Suggest(ctx context.Context, clinicID, productID string) (forecast.Suggestion, error)
}

// ForecastWarmupJob primes the suggestion cache so the first dashboard load
// of the day does not pay the computation.
type ForecastWarmupJob struct {
	pool      *pgxpool.Pool
	suggester ForecastSuggester
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

const warmupConcurrency = 8

// NewForecastWarmupJob constructs the warmup job. metrics may be nil.
func NewForecastWarmupJob(pool *pgxpool.Pool, suggester ForecastSuggester, logger *slog.Logger, metrics *jobmetrics.Metrics) *ForecastWarmupJob {
	return &ForecastWarmupJob{pool: pool, suggester: suggester, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ForecastWarmupJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("forecast_warmup")

	var payload ForecastWarmupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	products, err := j.products(ctx, payload.ClinicID)
	if err != nil {
		return tracker.End(fmt.Errorf("jobs: list products: %w", err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for _, p := range products {
		p := p
		g.Go(func() error {
			if _, err := j.suggester.Suggest(gctx, p.clinicID, p.id); err != nil {
				return fmt.Errorf("jobs: warm forecast for %s: %w", p.id, err)
			}
			return nil
		})
	}
	err = g.Wait()

	j.logger.Info("forecast warmup finished",
		slog.Int("products", len(products)),
		slog.Bool("ok", err == nil))
	return tracker.End(err)
}

type warmupProduct struct {
	clinicID string
	id       string
}

func (j *ForecastWarmupJob) products(ctx context.Context, clinicID string) ([]warmupProduct, error) {
	query := `SELECT clinic_id, id FROM products WHERE is_active = TRUE`
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

	var products []warmupProduct
	for rows.Next() {
		var p warmupProduct
		if err := rows.Scan(&p.clinicID, &p.id); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
