package repository

import (
	"context"

	"MarketWatch/internal/domain/models"
)

// Source wraps one upstream market data provider. Fetch errors are restricted
// to models.ErrUnsupported (wrong kind for this source, non-retryable) and
// models.ErrUnavailable (transient, incl. timeout); anything else is treated
// as unavailable by the aggregator.
type Source interface {
	// Name returns the source identifier used for quota accounting and logs.
	Name() string

	// Priority ranks the source among candidates; lower is tried first.
	Priority() int

	// Supports reports whether the source can serve the data kind.
	Supports(kind models.DataKind) bool

	// FetchQuote returns the latest quote for symbol.
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// FetchSeries returns a daily OHLCV series for symbol, most recent last.
	FetchSeries(ctx context.Context, symbol string) (*models.Series, error)
}

// QuotaTracker hands out call budget per source within fixed windows.
type QuotaTracker interface {
	// Reserve atomically consumes one call from the source's window budget.
	// It returns false, with no side effect, once the budget is exhausted.
	Reserve(source string) bool
}

// AlertStore is the alert state owned by the CRUD collaborator and mutated
// (status only) by the evaluator.
type AlertStore interface {
	Create(ctx context.Context, a *models.Alert) error
	Get(ctx context.Context, id string) (*models.Alert, error)
	ListActive(ctx context.Context) ([]*models.Alert, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Alert, error)
	Delete(ctx context.Context, id string) error

	// Transition moves the alert from one status to another. It returns false
	// if the alert is not currently in `from`; a concurrent duplicate
	// transition observes this as a no-op.
	Transition(ctx context.Context, id string, from, to models.AlertStatus) (bool, error)
}

// Notifier delivers alert trigger notifications. Fire-and-forget from the
// core's perspective; delivery failures are the collaborator's concern.
type Notifier interface {
	Notify(ctx context.Context, ownerID string, alert *models.Alert, observed float64) error
}

// SignalSink receives scanner signals for durable storage or publication.
type SignalSink interface {
	Publish(ctx context.Context, s *models.Signal) error
	Close() error
}

// Metrics records operational counters for the monitoring core.
type Metrics interface {
	RecordResolve(source, kind, outcome string)
	RecordCacheHit(kind string, stale bool)
	RecordCacheMiss(kind string)
	RecordQuotaRefusal(source string)
	RecordAlertTriggered(kind string)
	RecordSignalEmitted(kind string)
	RecordCycleDuration(task string, seconds float64)
}
