package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"

	"github.com/shopspring/decimal"
)

// fakeSource is a scriptable source for pipeline tests.
type fakeSource struct {
	name     string
	priority int
	kinds    map[models.DataKind]bool

	mu       sync.Mutex
	calls    int
	quoteFn  func(symbol string) (*models.Quote, error)
	seriesFn func(symbol string) (*models.Series, error)
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Priority() int { return f.priority }

func (f *fakeSource) Supports(kind models.DataKind) bool { return f.kinds[kind] }

func (f *fakeSource) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.quoteFn == nil {
		return nil, fmt.Errorf("%w: no quote script", models.ErrUnavailable)
	}
	return f.quoteFn(symbol)
}

func (f *fakeSource) FetchSeries(ctx context.Context, symbol string) (*models.Series, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.seriesFn == nil {
		return nil, fmt.Errorf("%w: no series script", models.ErrUnavailable)
	}
	return f.seriesFn(symbol)
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticQuote(price float64) func(string) (*models.Quote, error) {
	return func(symbol string) (*models.Quote, error) {
		return &models.Quote{
			Symbol:     symbol,
			Price:      decimal.NewFromFloat(price),
			ObservedAt: time.Now(),
		}, nil
	}
}

// fakeQuota refuses sources listed in denied.
type fakeQuota struct {
	mu     sync.Mutex
	denied map[string]bool
}

func (q *fakeQuota) Reserve(source string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.denied[source]
}

// nopMetrics satisfies the metrics interface for tests.
type nopMetrics struct{}

func (nopMetrics) RecordResolve(source, kind, outcome string)       {}
func (nopMetrics) RecordCacheHit(kind string, stale bool)           {}
func (nopMetrics) RecordCacheMiss(kind string)                      {}
func (nopMetrics) RecordQuotaRefusal(source string)                 {}
func (nopMetrics) RecordAlertTriggered(kind string)                 {}
func (nopMetrics) RecordSignalEmitted(kind string)                  {}
func (nopMetrics) RecordCycleDuration(task string, seconds float64) {}
