package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	"github.com/dentaflow/dentaflow-stock/internal/app"
	"github.com/dentaflow/dentaflow-stock/internal/forecast"
	jobmetrics "github.com/dentaflow/dentaflow-stock/internal/jobs"
	"github.com/dentaflow/dentaflow-stock/internal/notify"
	"github.com/dentaflow/dentaflow-stock/internal/observability"
	"github.com/dentaflow/dentaflow-stock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(alertsRepo, notify.NewSink(logger, metrics))

	forecastRepo := forecast.NewRepository(pool)
	forecastCache := forecast.NewCache(redisClient, cfg.ForecastCacheTTL)
	forecastService := forecast.NewService(forecastRepo, forecastCache)

	scanJob := jobs.NewLowStockScanJob(pool, alertsService, logger, jobMetrics)
	warmupJob := jobs.NewForecastWarmupJob(pool, forecastService, logger, jobMetrics)

	scanTask, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{})
	if err != nil {
		logger.Error("build lowstock scan task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewForecastWarmupTask(jobs.ForecastWarmupPayload{})
	if err != nil {
		logger.Error("build forecast warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
			{Type: jobs.TaskForecastWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.ForecastWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
