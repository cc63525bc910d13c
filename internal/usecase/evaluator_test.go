package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/notify"
	"MarketWatch/internal/repository"

	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/logger"

	"github.com/shopspring/decimal"
)

type captureQueue struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (q *captureQueue) Enqueue(n notify.Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seen = append(q.seen, n)
	return true
}

func (q *captureQueue) notifications() []notify.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]notify.Notification, len(q.seen))
	copy(out, q.seen)
	return out
}

func newEvalHarness(t *testing.T, sources ...*fakeSource) (*Evaluator, *repository.MemoryAlertStore, *captureQueue) {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	repoSources := make([]domrepo.Source, 0, len(sources))
	for _, s := range sources {
		repoSources = append(repoSources, s)
	}
	agg := NewAggregator(repoSources, &fakeQuota{}, mem, nopMetrics{}, logger.Nop(), AggregatorConfig{
		QuoteTTL:    time.Minute,
		SeriesTTL:   5 * time.Minute,
		StaleFactor: 10,
	})

	store := repository.NewMemoryAlertStore(0)
	queue := &captureQueue{}
	eval := NewEvaluator(agg, store, queue, nopMetrics{}, logger.Nop(), EvaluatorConfig{
		Concurrency:    2,
		RsiLookback:    14,
		VolumeLookback: 5,
	})
	return eval, store, queue
}

func mustCreate(t *testing.T, store *repository.MemoryAlertStore, a *models.Alert) *models.Alert {
	t.Helper()
	if err := store.Create(context.Background(), a); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return a
}

func TestEvaluatorTriggersAtMostOnce(t *testing.T) {
	src := &fakeSource{
		name:     "quotes",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(150),
	}
	eval, store, queue := newEvalHarness(t, src)

	a := mustCreate(t, store, &models.Alert{
		OwnerID:   "owner-1",
		Symbol:    "AAPL",
		Kind:      models.PriceAbove,
		Threshold: decimal.NewFromInt(100),
	})

	ctx := context.Background()
	eval.RunCycle(ctx)
	eval.RunCycle(ctx)

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusDisabled {
		t.Fatalf("status = %s, want disabled", got.Status)
	}
	if got.TriggeredAt == nil {
		t.Fatalf("TriggeredAt not stamped")
	}

	ns := queue.notifications()
	if len(ns) != 1 {
		t.Fatalf("%d notifications, want exactly 1", len(ns))
	}
	if ns[0].Observed != 150 {
		t.Fatalf("observed = %v, want 150", ns[0].Observed)
	}
}

func TestEvaluatorStrictThreshold(t *testing.T) {
	src := &fakeSource{
		name:     "quotes",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(100),
	}
	eval, store, queue := newEvalHarness(t, src)

	a := mustCreate(t, store, &models.Alert{
		OwnerID:   "owner-1",
		Symbol:    "AAPL",
		Kind:      models.PriceAbove,
		Threshold: decimal.NewFromInt(100), // equality must not trigger
	})

	eval.RunCycle(context.Background())

	got, _ := store.Get(context.Background(), a.ID)
	if got.Status != models.StatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
	if len(queue.notifications()) != 0 {
		t.Fatalf("no notifications expected")
	}
}

func TestEvaluatorSymbolFailureIsolation(t *testing.T) {
	src := &fakeSource{
		name:     "quotes",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn: func(symbol string) (*models.Quote, error) {
			if symbol == "BAD" {
				return nil, fmt.Errorf("%w: upstream down", models.ErrUnavailable)
			}
			return staticQuote(500)(symbol)
		},
	}
	eval, store, queue := newEvalHarness(t, src)

	bad := mustCreate(t, store, &models.Alert{
		OwnerID: "o", Symbol: "BAD", Kind: models.PriceAbove, Threshold: decimal.NewFromInt(1),
	})
	good := mustCreate(t, store, &models.Alert{
		OwnerID: "o", Symbol: "GOOD", Kind: models.PriceAbove, Threshold: decimal.NewFromInt(1),
	})

	eval.RunCycle(context.Background())

	gotBad, _ := store.Get(context.Background(), bad.ID)
	if gotBad.Status != models.StatusActive {
		t.Fatalf("unreachable symbol's alert must stay active, got %s", gotBad.Status)
	}
	gotGood, _ := store.Get(context.Background(), good.ID)
	if gotGood.Status != models.StatusDisabled {
		t.Fatalf("good symbol's alert should have fired, got %s", gotGood.Status)
	}
	if len(queue.notifications()) != 1 {
		t.Fatalf("%d notifications, want 1", len(queue.notifications()))
	}
}

func TestEvaluatorRsiAlert(t *testing.T) {
	// steadily falling closes push RSI to 0
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: int64(i),
			Close:     200 - float64(i),
			Volume:    1000,
		}
	}
	src := &fakeSource{
		name:     "history",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindSeries: true},
		seriesFn: func(symbol string) (*models.Series, error) {
			return &models.Series{Symbol: symbol, Candles: candles}, nil
		},
	}
	eval, store, queue := newEvalHarness(t, src)

	a := mustCreate(t, store, &models.Alert{
		OwnerID: "o", Symbol: "AAPL", Kind: models.RsiBelow, Threshold: decimal.NewFromInt(30),
	})

	eval.RunCycle(context.Background())

	got, _ := store.Get(context.Background(), a.ID)
	if got.Status != models.StatusDisabled {
		t.Fatalf("status = %s, want disabled", got.Status)
	}
	ns := queue.notifications()
	if len(ns) != 1 {
		t.Fatalf("%d notifications, want 1", len(ns))
	}
	if ns[0].Observed != 0 {
		t.Fatalf("observed RSI = %v, want 0", ns[0].Observed)
	}
}

func TestEvaluatorGroupsResolveOnce(t *testing.T) {
	src := &fakeSource{
		name:     "quotes",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(50),
	}
	eval, store, _ := newEvalHarness(t, src)

	// three alerts on the same symbol and data kind
	for i := 0; i < 3; i++ {
		mustCreate(t, store, &models.Alert{
			OwnerID: "o", Symbol: "AAPL", Kind: models.PriceAbove,
			Threshold: decimal.NewFromInt(int64(1000 + i)),
		})
	}

	eval.RunCycle(context.Background())

	if got := src.callCount(); got != 1 {
		t.Fatalf("source called %d times, want 1 (grouped resolve)", got)
	}
}
