package usecase

import (
	"context"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/internal/indicators"
	"MarketWatch/internal/notify"

	"MarketWatch/pkg/logger"
)

// NotifyQueue is the slice of the notification queue the evaluator needs.
type NotifyQueue interface {
	Enqueue(n notify.Notification) bool
}

// EvaluatorConfig tunes an evaluation cycle.
type EvaluatorConfig struct {
	Concurrency    int
	RsiLookback    int
	VolumeLookback int
}

// Evaluator runs alert evaluation cycles: resolve the data each active
// alert needs, test its condition, and walk the triggered ones through
// Active -> Triggered -> Disabled with a notification in between. The CAS
// on the first transition makes the notification at-most-once even if two
// cycles overlap.
type Evaluator struct {
	agg     *Aggregator
	store   repository.AlertStore
	queue   NotifyQueue
	metrics repository.Metrics
	log     *logger.Logger
	cfg     EvaluatorConfig
}

// NewEvaluator creates an evaluator.
func NewEvaluator(
	agg *Aggregator,
	store repository.AlertStore,
	queue NotifyQueue,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg EvaluatorConfig,
) *Evaluator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RsiLookback <= 0 {
		cfg.RsiLookback = 14
	}
	if cfg.VolumeLookback <= 0 {
		cfg.VolumeLookback = 20
	}
	return &Evaluator{agg: agg, store: store, queue: queue, metrics: metrics, log: log, cfg: cfg}
}

type alertGroup struct {
	symbol string
	kind   models.DataKind
	alerts []*models.Alert
}

// RunCycle evaluates every active alert once. A symbol whose data cannot
// be resolved is skipped for the cycle; its alerts stay active.
func (e *Evaluator) RunCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		e.metrics.RecordCycleDuration("evaluator", time.Since(start).Seconds())
	}()

	alerts, err := e.store.ListActive(ctx)
	if err != nil {
		e.log.Error("list active alerts failed", logger.Error(err))
		return
	}
	if len(alerts) == 0 {
		return
	}

	groups := groupAlerts(alerts)
	e.log.Debug("evaluation cycle",
		logger.Int("alerts", len(alerts)),
		logger.Int("groups", len(groups)))

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(g alertGroup) {
			defer wg.Done()
			defer func() { <-sem }()
			e.evaluateGroup(ctx, g)
		}(g)
	}
	wg.Wait()
}

// groupAlerts buckets alerts by (symbol, data kind) so each bucket costs
// at most one resolve per cycle.
func groupAlerts(alerts []*models.Alert) []alertGroup {
	idx := make(map[string]int)
	groups := make([]alertGroup, 0)
	for _, a := range alerts {
		kind := a.Kind.DataKind()
		key := a.Symbol + "/" + string(kind)
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, alertGroup{symbol: a.Symbol, kind: kind})
		}
		groups[i].alerts = append(groups[i].alerts, a)
	}
	return groups
}

func (e *Evaluator) evaluateGroup(ctx context.Context, g alertGroup) {
	data, err := e.agg.Resolve(ctx, g.symbol, g.kind)
	if err != nil {
		e.log.Warn("symbol skipped this cycle",
			logger.String("symbol", g.symbol),
			logger.String("kind", string(g.kind)),
			logger.Error(err))
		return
	}

	for _, a := range g.alerts {
		met, observed, err := e.conditionMet(a, data)
		if err != nil {
			e.log.Debug("alert not evaluable",
				logger.String("alert_id", a.ID),
				logger.Error(err))
			continue
		}
		if !met {
			continue
		}
		e.trigger(ctx, a, observed)
	}
}

// conditionMet tests the alert against resolved data. Thresholds are
// strict: equality does not trigger.
func (e *Evaluator) conditionMet(a *models.Alert, data *models.MarketData) (bool, float64, error) {
	switch a.Kind {
	case models.PriceAbove:
		price := data.Quote.Price
		return price.GreaterThan(a.Threshold), price.InexactFloat64(), nil
	case models.PriceBelow:
		price := data.Quote.Price
		return price.LessThan(a.Threshold), price.InexactFloat64(), nil
	case models.RsiAbove:
		rsi, err := indicators.RSI(data.Series.Closes(), e.cfg.RsiLookback)
		if err != nil {
			return false, 0, err
		}
		return rsi > a.Threshold.InexactFloat64(), rsi, nil
	case models.RsiBelow:
		rsi, err := indicators.RSI(data.Series.Closes(), e.cfg.RsiLookback)
		if err != nil {
			return false, 0, err
		}
		return rsi < a.Threshold.InexactFloat64(), rsi, nil
	case models.VolumeSpike:
		ratio, err := indicators.VolumeRatio(data.Series.Volumes(), e.cfg.VolumeLookback)
		if err != nil {
			return false, 0, err
		}
		return ratio > a.Threshold.InexactFloat64(), ratio, nil
	}
	return false, 0, nil
}

// trigger walks the state machine. Only the CAS winner notifies; the
// follow-up move to Disabled is unconditional housekeeping.
func (e *Evaluator) trigger(ctx context.Context, a *models.Alert, observed float64) {
	won, err := e.store.Transition(ctx, a.ID, models.StatusActive, models.StatusTriggered)
	if err != nil {
		e.log.Error("alert transition failed",
			logger.String("alert_id", a.ID),
			logger.Error(err))
		return
	}
	if !won {
		// another cycle got here first
		return
	}

	e.metrics.RecordAlertTriggered(string(a.Kind))
	e.log.Info("alert triggered",
		logger.String("alert_id", a.ID),
		logger.String("symbol", a.Symbol),
		logger.String("kind", string(a.Kind)),
		logger.Float64("observed", observed))

	e.queue.Enqueue(notify.Notification{
		OwnerID:  a.OwnerID,
		Alert:    a,
		Observed: observed,
	})

	if _, err := e.store.Transition(ctx, a.ID, models.StatusTriggered, models.StatusDisabled); err != nil {
		e.log.Error("alert disable failed",
			logger.String("alert_id", a.ID),
			logger.Error(err))
	}
}
