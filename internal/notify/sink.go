// Package notify delivers raised alerts to humans. The current sink writes
// structured log lines and counts by severity; mail or push channels plug in
// behind the same interface.
package notify

import (
	"context"
	"log/slog"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	"github.com/dentaflow/dentaflow-stock/internal/observability"
)

// Sink implements alerts.Notifier over structured logging.
type Sink struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSink constructs the log sink. metrics may be nil.
func NewSink(logger *slog.Logger, metrics *observability.Metrics) *Sink {
	return &Sink{logger: logger, metrics: metrics}
}

// AlertRaised logs the alert and bumps the severity counter.
func (s *Sink) AlertRaised(ctx context.Context, alert alerts.Alert) {
	s.metrics.AlertRaised(string(alert.Type))
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "low stock alert",
		slog.String("alert_id", alert.ID),
		slog.String("clinic_id", alert.ClinicID),
		slog.String("product_id", alert.ProductID),
		slog.String("type", string(alert.Type)),
		slog.Float64("current_quantity", alert.CurrentQuantity),
		slog.Float64("suggested_quantity", alert.SuggestedQuantity))
}
