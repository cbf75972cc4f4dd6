package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	"github.com/dentaflow/dentaflow-stock/internal/app"
	"github.com/dentaflow/dentaflow-stock/internal/audit"
	"github.com/dentaflow/dentaflow-stock/internal/catalog"
	"github.com/dentaflow/dentaflow-stock/internal/forecast"
	"github.com/dentaflow/dentaflow-stock/internal/ledger"
	"github.com/dentaflow/dentaflow-stock/internal/notify"
	"github.com/dentaflow/dentaflow-stock/internal/observability"
	"github.com/dentaflow/dentaflow-stock/internal/platform/cache"
	"github.com/dentaflow/dentaflow-stock/internal/platform/db"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
	"github.com/dentaflow/dentaflow-stock/internal/stocktake"
	"github.com/dentaflow/dentaflow-stock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Stocktake run locks require redis; refuse to start without it.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	alertsRepo := alerts.NewRepository(dbpool)
	alertsService := alerts.NewService(alertsRepo, notify.NewSink(logger, metrics))
	alertsHandler := alerts.NewHandler(logger, alertsService)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, alertsService, auditLogger, metrics, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	forecastRepo := forecast.NewRepository(dbpool)
	forecastCache := forecast.NewCache(redisClient, cfg.ForecastCacheTTL)
	forecastService := forecast.NewService(forecastRepo, forecastCache)
	forecastHandler := forecast.NewHandler(logger, forecastService)

	stocktakeRepo := stocktake.NewRepository(dbpool)
	stocktakeLocker := stocktake.NewRedisRunLocker(redisClient)
	stocktakeService := stocktake.NewService(stocktakeRepo, ledgerService, stocktakeLocker, auditLogger, logger)
	stocktakeHandler := stocktake.NewHandler(logger, stocktakeService)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		LedgerHandler:    ledgerHandler,
		ForecastHandler:  forecastHandler,
		AlertsHandler:    alertsHandler,
		StocktakeHandler: stocktakeHandler,
		AuditHandler:     auditHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
