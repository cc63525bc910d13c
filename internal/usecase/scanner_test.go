package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"

	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/logger"
)

type captureSink struct {
	mu   sync.Mutex
	sigs []*models.Signal
}

func (c *captureSink) Publish(ctx context.Context, s *models.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sigs = append(c.sigs, s)
	return nil
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) bySymbol() map[string][]*models.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]*models.Signal)
	for _, s := range c.sigs {
		out[s.Symbol] = append(out[s.Symbol], s)
	}
	return out
}

func fallingSeries(symbol string) *models.Series {
	candles := make([]models.Candle, 30)
	for i := range candles {
		px := 200 - float64(i)
		candles[i] = models.Candle{
			Timestamp: int64(i),
			Open:      px,
			High:      px,
			Low:       px,
			Close:     px,
			Volume:    1000,
		}
	}
	return &models.Series{Symbol: symbol, Candles: candles}
}

func newScanHarness(t *testing.T, src *fakeSource, cfg ScannerConfig) (*Scanner, *captureSink) {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	agg := NewAggregator([]domrepo.Source{src}, &fakeQuota{}, mem, nopMetrics{}, logger.Nop(), AggregatorConfig{
		QuoteTTL:    time.Minute,
		SeriesTTL:   5 * time.Minute,
		StaleFactor: 10,
	})

	sink := &captureSink{}
	return NewScanner(agg, sink, nopMetrics{}, logger.Nop(), cfg), sink
}

func TestSweepFailureIsolation(t *testing.T) {
	src := &fakeSource{
		name:     "history",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindSeries: true},
		seriesFn: func(symbol string) (*models.Series, error) {
			if symbol == "BAD" {
				return nil, fmt.Errorf("%w: upstream down", models.ErrUnavailable)
			}
			return fallingSeries(symbol), nil
		},
	}
	scanner, sink := newScanHarness(t, src, ScannerConfig{
		Universe:    []string{"GOOD1", "BAD", "GOOD2"},
		Concurrency: 2,
	})

	scanner.RunSweep(context.Background())

	got := sink.bySymbol()
	if len(got["BAD"]) != 0 {
		t.Fatalf("failing symbol emitted signals: %+v", got["BAD"])
	}
	for _, sym := range []string{"GOOD1", "GOOD2"} {
		if len(got[sym]) == 0 {
			t.Fatalf("no signals for %s", sym)
		}
	}
}

func TestSweepDetectsOversoldAndDedupes(t *testing.T) {
	src := &fakeSource{
		name:     "history",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindSeries: true},
		seriesFn: func(symbol string) (*models.Series, error) {
			return fallingSeries(symbol), nil
		},
	}
	scanner, sink := newScanHarness(t, src, ScannerConfig{
		Universe: []string{"AAPL"},
	})

	scanner.RunSweep(context.Background())

	sigs := sink.bySymbol()["AAPL"]
	kinds := make(map[models.SignalKind]int)
	for _, s := range sigs {
		kinds[s.Kind]++
	}

	if kinds[models.SignalRsiOversold] != 1 {
		t.Fatalf("rsi_oversold count = %d, want 1", kinds[models.SignalRsiOversold])
	}
	if kinds[models.SignalNear52WeekLow] != 1 {
		t.Fatalf("near_52w_low count = %d, want 1", kinds[models.SignalNear52WeekLow])
	}
	for k, n := range kinds {
		if n > 1 {
			t.Fatalf("kind %s emitted %d times in one sweep", k, n)
		}
	}
}

func TestSweepSkippedOutsideMarketHours(t *testing.T) {
	src := &fakeSource{
		name:     "history",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindSeries: true},
		seriesFn: func(symbol string) (*models.Series, error) {
			return fallingSeries(symbol), nil
		},
	}
	scanner, sink := newScanHarness(t, src, ScannerConfig{
		Universe: []string{"AAPL"},
		MarketHours: MarketHours{
			Enabled:  true,
			Open:     "09:15",
			Close:    "15:30",
			Timezone: "Asia/Kolkata",
		},
	})
	// Saturday
	scanner.now = func() time.Time {
		return time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	}

	scanner.RunSweep(context.Background())

	if len(sink.bySymbol()) != 0 {
		t.Fatalf("sweep should be skipped on weekend")
	}
	if src.callCount() != 0 {
		t.Fatalf("no fetches expected outside market hours")
	}
}

func TestSweepRunsDuringMarketHours(t *testing.T) {
	src := &fakeSource{
		name:     "history",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindSeries: true},
		seriesFn: func(symbol string) (*models.Series, error) {
			return fallingSeries(symbol), nil
		},
	}
	scanner, sink := newScanHarness(t, src, ScannerConfig{
		Universe: []string{"AAPL"},
		MarketHours: MarketHours{
			Enabled:  true,
			Open:     "09:15",
			Close:    "15:30",
			Timezone: "Asia/Kolkata",
		},
	})
	// Monday 11:00 IST = 05:30 UTC
	scanner.now = func() time.Time {
		return time.Date(2024, 6, 3, 5, 30, 0, 0, time.UTC)
	}

	scanner.RunSweep(context.Background())

	if len(sink.bySymbol()["AAPL"]) == 0 {
		t.Fatalf("sweep should run during market hours")
	}
}
