package notify

import (
	"context"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	"MarketWatch/pkg/logger"
)

// LogNotifier writes notifications to the structured log. It is the
// default delivery channel; real channels (email, webhooks) plug in behind
// the same interface.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logger.Logger) repository.Notifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, ownerID string, alert *models.Alert, observed float64) error {
	n.log.Info("ALERT TRIGGERED",
		logger.String("owner_id", ownerID),
		logger.String("alert_id", alert.ID),
		logger.String("symbol", alert.Symbol),
		logger.String("kind", string(alert.Kind)),
		logger.String("threshold", alert.Threshold.String()),
		logger.Float64("observed", observed))
	return nil
}
