package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/logger"
)

func newTestAggregator(t *testing.T, sources []*fakeSource, quota *fakeQuota) (*Aggregator, cache.Service) {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	repoSources := make([]repository.Source, 0, len(sources))
	for _, s := range sources {
		repoSources = append(repoSources, s)
	}

	agg := NewAggregator(repoSources, quota, mem, nopMetrics{}, logger.Nop(), AggregatorConfig{
		QuoteTTL:    time.Minute,
		SeriesTTL:   5 * time.Minute,
		StaleFactor: 10,
	})
	return agg, mem
}

func TestResolveCacheFirst(t *testing.T) {
	src := &fakeSource{
		name:     "primary",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(100),
	}
	agg, _ := newTestAggregator(t, []*fakeSource{src}, &fakeQuota{})

	ctx := context.Background()
	first, err := agg.Resolve(ctx, "AAPL", models.KindQuote)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if first.Stale {
		t.Fatalf("fresh fetch marked stale")
	}

	// second resolve must come from cache, not the source
	if _, err := agg.Resolve(ctx, "AAPL", models.KindQuote); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got := src.callCount(); got != 1 {
		t.Fatalf("source called %d times, want 1", got)
	}
}

func TestResolvePriorityFallback(t *testing.T) {
	failing := &fakeSource{
		name:     "flaky",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn: func(string) (*models.Quote, error) {
			return nil, fmt.Errorf("%w: upstream 502", models.ErrUnavailable)
		},
	}
	backup := &fakeSource{
		name:     "backup",
		priority: 2,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(42),
	}
	// registered out of priority order on purpose
	agg, _ := newTestAggregator(t, []*fakeSource{backup, failing}, &fakeQuota{})

	data, err := agg.Resolve(context.Background(), "MSFT", models.KindQuote)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if data.Quote.Price.String() != "42" {
		t.Fatalf("price = %s, want 42", data.Quote.Price)
	}
	if failing.callCount() != 1 {
		t.Fatalf("higher priority source should be tried first")
	}
}

func TestResolveQuotaRefusalSkipsSource(t *testing.T) {
	limited := &fakeSource{
		name:     "limited",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(1),
	}
	open := &fakeSource{
		name:     "open",
		priority: 2,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
		quoteFn:  staticQuote(2),
	}
	quota := &fakeQuota{denied: map[string]bool{"limited": true}}
	agg, _ := newTestAggregator(t, []*fakeSource{limited, open}, quota)

	data, err := agg.Resolve(context.Background(), "TSLA", models.KindQuote)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if data.Quote.Price.String() != "2" {
		t.Fatalf("price = %s, want 2", data.Quote.Price)
	}
	if limited.callCount() != 0 {
		t.Fatalf("quota-refused source must not be called")
	}
}

func TestResolveAllSourcesExhausted(t *testing.T) {
	src := &fakeSource{
		name:     "only",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
	}
	quota := &fakeQuota{denied: map[string]bool{"only": true}}
	agg, _ := newTestAggregator(t, []*fakeSource{src}, quota)

	_, err := agg.Resolve(context.Background(), "AAPL", models.KindQuote)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestResolveAllowStaleServesExpired(t *testing.T) {
	calls := 0
	src := &fakeSource{
		name:     "once",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
	}
	src.quoteFn = func(symbol string) (*models.Quote, error) {
		calls++
		if calls == 1 {
			return staticQuote(77)(symbol)
		}
		return nil, fmt.Errorf("%w: now failing", models.ErrUnavailable)
	}
	agg, _ := newTestAggregator(t, []*fakeSource{src}, &fakeQuota{})

	ctx := context.Background()
	if _, err := agg.Resolve(ctx, "AAPL", models.KindQuote); err != nil {
		t.Fatalf("seed resolve: %v", err)
	}

	// advance past the logical TTL but within physical retention
	base := time.Now()
	agg.now = func() time.Time { return base.Add(2 * time.Minute) }

	// strict resolve fails
	if _, err := agg.Resolve(ctx, "AAPL", models.KindQuote); !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("strict resolve err = %v, want ErrDataUnavailable", err)
	}

	// opt-in stale read succeeds and is marked
	data, err := agg.ResolveAllowStale(ctx, "AAPL", models.KindQuote)
	if err != nil {
		t.Fatalf("stale resolve: %v", err)
	}
	if !data.Stale {
		t.Fatalf("expected Stale flag on expired entry")
	}
	if data.Quote.Price.String() != "77" {
		t.Fatalf("price = %s, want 77", data.Quote.Price)
	}
}

func TestResolveUnsupportedKindSkipped(t *testing.T) {
	quoteOnly := &fakeSource{
		name:     "quotes",
		priority: 1,
		kinds:    map[models.DataKind]bool{models.KindQuote: true},
	}
	seriesSrc := &fakeSource{
		name:     "history",
		priority: 2,
		kinds:    map[models.DataKind]bool{models.KindSeries: true},
		seriesFn: func(symbol string) (*models.Series, error) {
			return &models.Series{
				Symbol:  symbol,
				Candles: []models.Candle{{Timestamp: 1, Close: 10, Volume: 5}},
			}, nil
		},
	}
	agg, _ := newTestAggregator(t, []*fakeSource{quoteOnly, seriesSrc}, &fakeQuota{})

	data, err := agg.Resolve(context.Background(), "AAPL", models.KindSeries)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if data.Series == nil || len(data.Series.Candles) != 1 {
		t.Fatalf("unexpected series: %+v", data.Series)
	}
	if quoteOnly.callCount() != 0 {
		t.Fatalf("quote-only source must be skipped for series")
	}
}
