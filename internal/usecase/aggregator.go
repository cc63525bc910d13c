package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/logger"
)

// AggregatorConfig tunes the cache-first resolution pipeline.
type AggregatorConfig struct {
	QuoteTTL  time.Duration
	SeriesTTL time.Duration
	// StaleFactor multiplies the logical TTL to get the physical cache
	// retention, so expired entries stay readable for stale fallback.
	StaleFactor int
}

// envelope wraps a cached payload with its freshness horizon. Cache
// backends evict on the physical TTL; logical freshness is judged here.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Source    string          `json:"source"`
}

// Aggregator resolves market data cache-first, then walks sources in
// priority order, reserving quota before each network attempt.
type Aggregator struct {
	sources []repository.Source
	quota   repository.QuotaTracker
	cache   cache.Service
	metrics repository.Metrics
	log     *logger.Logger
	cfg     AggregatorConfig

	now func() time.Time
}

// NewAggregator creates an aggregator over the given sources. The source
// slice is copied and sorted by ascending priority.
func NewAggregator(
	sources []repository.Source,
	quota repository.QuotaTracker,
	cacheSvc cache.Service,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg AggregatorConfig,
) *Aggregator {
	sorted := make([]repository.Source, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	if cfg.StaleFactor < 1 {
		cfg.StaleFactor = 1
	}

	return &Aggregator{
		sources: sorted,
		quota:   quota,
		cache:   cacheSvc,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Resolve returns fresh data for the symbol, from cache when possible and
// otherwise from the highest priority source that can serve it. It never
// returns stale data; use ResolveAllowStale for that.
func (a *Aggregator) Resolve(ctx context.Context, symbol string, kind models.DataKind) (*models.MarketData, error) {
	return a.resolve(ctx, symbol, kind, false)
}

// ResolveAllowStale behaves like Resolve but, when every source fails,
// falls back to an expired cache entry if one is still retained. The
// returned MarketData is marked Stale in that case.
func (a *Aggregator) ResolveAllowStale(ctx context.Context, symbol string, kind models.DataKind) (*models.MarketData, error) {
	return a.resolve(ctx, symbol, kind, true)
}

func (a *Aggregator) resolve(ctx context.Context, symbol string, kind models.DataKind, allowStale bool) (*models.MarketData, error) {
	key := cacheKey(symbol, kind)
	now := a.now()

	var env envelope
	cacheErr := a.cache.Get(ctx, key, &env)
	if cacheErr == nil && now.Before(env.ExpiresAt) {
		data, err := a.decode(kind, &env)
		if err == nil {
			a.metrics.RecordCacheHit(string(kind), false)
			return data, nil
		}
		a.log.Warn("cache entry corrupt", logger.String("key", key), logger.Error(err))
	}
	a.metrics.RecordCacheMiss(string(kind))

	data, fetchErr := a.fetch(ctx, symbol, kind)
	if fetchErr == nil {
		if err := a.store(ctx, key, kind, data, now); err != nil {
			a.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
		}
		return data, nil
	}

	if allowStale && cacheErr == nil {
		if data, err := a.decode(kind, &env); err == nil {
			a.metrics.RecordCacheHit(string(kind), true)
			data.Stale = true
			data.AsOf = env.FetchedAt
			a.log.Debug("serving stale data",
				logger.String("symbol", symbol),
				logger.String("kind", string(kind)),
				logger.Duration("age", now.Sub(env.FetchedAt)))
			return data, nil
		}
	}

	return nil, fetchErr
}

// fetch walks the supporting sources in priority order. A quota refusal
// skips the source without burning its budget; unsupported and unavailable
// answers fall through to the next source.
func (a *Aggregator) fetch(ctx context.Context, symbol string, kind models.DataKind) (*models.MarketData, error) {
	attempted := 0
	for _, src := range a.sources {
		if !src.Supports(kind) {
			continue
		}
		if !a.quota.Reserve(src.Name()) {
			a.metrics.RecordQuotaRefusal(src.Name())
			a.log.Debug("quota refused",
				logger.String("source", src.Name()),
				logger.String("symbol", symbol))
			continue
		}
		attempted++

		data, err := a.fetchFrom(ctx, src, symbol, kind)
		if err == nil {
			a.metrics.RecordResolve(src.Name(), string(kind), "ok")
			return data, nil
		}

		switch {
		case errors.Is(err, models.ErrUnsupported):
			a.metrics.RecordResolve(src.Name(), string(kind), "unsupported")
		case errors.Is(err, models.ErrUnavailable):
			a.metrics.RecordResolve(src.Name(), string(kind), "unavailable")
		default:
			a.metrics.RecordResolve(src.Name(), string(kind), "error")
		}
		a.log.Debug("source failed",
			logger.String("source", src.Name()),
			logger.String("symbol", symbol),
			logger.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: %s %s: no source available within quota", models.ErrDataUnavailable, kind, symbol)
	}
	return nil, fmt.Errorf("%w: %s %s: all sources failed", models.ErrDataUnavailable, kind, symbol)
}

func (a *Aggregator) fetchFrom(ctx context.Context, src repository.Source, symbol string, kind models.DataKind) (*models.MarketData, error) {
	switch kind {
	case models.KindQuote:
		quote, err := src.FetchQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &models.MarketData{Kind: kind, Quote: quote, AsOf: a.now()}, nil
	case models.KindSeries:
		series, err := src.FetchSeries(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &models.MarketData{Kind: kind, Series: series, AsOf: a.now()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", models.ErrUnsupported, kind)
	}
}

func (a *Aggregator) store(ctx context.Context, key string, kind models.DataKind, data *models.MarketData, now time.Time) error {
	var payload interface{}
	var source string
	switch kind {
	case models.KindQuote:
		payload = data.Quote
		source = data.Quote.Source
	case models.KindSeries:
		payload = data.Series
		source = data.Series.Source
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ttl := a.ttl(kind)
	env := envelope{
		Data:      raw,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
		Source:    source,
	}
	return a.cache.Set(ctx, key, &env, ttl*time.Duration(a.cfg.StaleFactor))
}

func (a *Aggregator) decode(kind models.DataKind, env *envelope) (*models.MarketData, error) {
	data := &models.MarketData{Kind: kind, AsOf: env.FetchedAt}
	switch kind {
	case models.KindQuote:
		var q models.Quote
		if err := json.Unmarshal(env.Data, &q); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		data.Quote = &q
	case models.KindSeries:
		var s models.Series
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("decode series: %w", err)
		}
		data.Series = &s
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return data, nil
}

func (a *Aggregator) ttl(kind models.DataKind) time.Duration {
	if kind == models.KindSeries {
		return a.cfg.SeriesTTL
	}
	return a.cfg.QuoteTTL
}

func cacheKey(symbol string, kind models.DataKind) string {
	return string(kind) + ":" + symbol
}
