package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/internal/indicators"

	"MarketWatch/pkg/logger"

	"github.com/google/uuid"
)

// MarketHours gates sweeps to the trading session. Zero value disables the
// gate entirely.
type MarketHours struct {
	Enabled  bool
	Open     string // "09:15"
	Close    string // "15:30"
	Timezone string // IANA name
}

// ScannerConfig tunes a sweep and its detectors.
type ScannerConfig struct {
	Universe    []string
	Concurrency int
	MarketHours MarketHours

	RsiLookback   int
	RsiOversold   float64
	RsiOverbought float64

	MacdFast   int
	MacdSlow   int
	MacdSignal int

	BollingerPeriod int
	BollingerStdDev float64
	SqueezeFraction float64

	VolumeLookback   int
	VolumeMultiplier float64

	// BreakoutBandPct is how close to the 52-week extreme, in percent,
	// counts as "near".
	BreakoutBandPct float64
}

// Scanner sweeps the configured universe and runs every detector against
// each symbol's series. One failing symbol never aborts the sweep, and a
// detector fires at most once per symbol per sweep.
type Scanner struct {
	agg     *Aggregator
	sink    repository.SignalSink
	metrics repository.Metrics
	log     *logger.Logger
	cfg     ScannerConfig

	now func() time.Time
}

// NewScanner creates a scanner.
func NewScanner(
	agg *Aggregator,
	sink repository.SignalSink,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg ScannerConfig,
) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RsiLookback <= 0 {
		cfg.RsiLookback = 14
	}
	if cfg.RsiOversold <= 0 {
		cfg.RsiOversold = 30
	}
	if cfg.RsiOverbought <= 0 {
		cfg.RsiOverbought = 70
	}
	if cfg.MacdFast <= 0 {
		cfg.MacdFast = 12
	}
	if cfg.MacdSlow <= 0 {
		cfg.MacdSlow = 26
	}
	if cfg.MacdSignal <= 0 {
		cfg.MacdSignal = 9
	}
	if cfg.BollingerPeriod <= 0 {
		cfg.BollingerPeriod = 20
	}
	if cfg.BollingerStdDev <= 0 {
		cfg.BollingerStdDev = 2.0
	}
	if cfg.SqueezeFraction <= 0 {
		cfg.SqueezeFraction = 0.5
	}
	if cfg.VolumeLookback <= 0 {
		cfg.VolumeLookback = 20
	}
	if cfg.VolumeMultiplier <= 0 {
		cfg.VolumeMultiplier = 2.0
	}
	if cfg.BreakoutBandPct <= 0 {
		cfg.BreakoutBandPct = 0.5
	}
	return &Scanner{agg: agg, sink: sink, metrics: metrics, log: log, cfg: cfg, now: time.Now}
}

// RunSweep scans the whole universe once. Outside market hours (when the
// gate is enabled) the sweep is skipped.
func (s *Scanner) RunSweep(ctx context.Context) {
	if !s.withinMarketHours(s.now()) {
		s.log.Debug("sweep skipped outside market hours")
		return
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordCycleDuration("scanner", time.Since(start).Seconds())
	}()

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	var emitted, failed int64
	var mu sync.Mutex

	for _, symbol := range s.cfg.Universe {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			n, err := s.scanSymbol(ctx, symbol)
			mu.Lock()
			emitted += int64(n)
			if err != nil {
				failed++
			}
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	s.log.Info("sweep complete",
		logger.Int("universe", len(s.cfg.Universe)),
		logger.Int64("signals", emitted),
		logger.Int64("failed_symbols", failed),
		logger.Duration("duration_ms", time.Since(start)))
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) (int, error) {
	data, err := s.agg.ResolveAllowStale(ctx, symbol, models.KindSeries)
	if err != nil {
		s.log.Warn("symbol skipped this sweep",
			logger.String("symbol", symbol),
			logger.Error(err))
		return 0, err
	}

	signals := s.detect(symbol, data.Series)

	// at most one signal per (symbol, kind) per sweep
	seen := make(map[models.SignalKind]bool, len(signals))
	emitted := 0
	for _, sig := range signals {
		if seen[sig.Kind] {
			continue
		}
		seen[sig.Kind] = true

		if err := s.sink.Publish(ctx, sig); err != nil {
			s.log.Error("signal publish failed",
				logger.String("symbol", symbol),
				logger.String("kind", string(sig.Kind)),
				logger.Error(err))
			continue
		}
		s.metrics.RecordSignalEmitted(string(sig.Kind))
		emitted++
	}
	return emitted, nil
}

func (s *Scanner) detect(symbol string, series *models.Series) []*models.Signal {
	closes := series.Closes()
	if len(closes) == 0 {
		return nil
	}
	price := closes[len(closes)-1]
	out := make([]*models.Signal, 0, 4)

	if rsi, err := indicators.RSI(closes, s.cfg.RsiLookback); err == nil {
		if rsi < s.cfg.RsiOversold {
			out = append(out, s.signal(symbol, models.SignalRsiOversold, rsi, price,
				fmt.Sprintf("RSI %.1f below %.0f", rsi, s.cfg.RsiOversold)))
		} else if rsi > s.cfg.RsiOverbought {
			out = append(out, s.signal(symbol, models.SignalRsiOverbought, rsi, price,
				fmt.Sprintf("RSI %.1f above %.0f", rsi, s.cfg.RsiOverbought)))
		}
	}

	if macd, err := indicators.MACD(closes, s.cfg.MacdFast, s.cfg.MacdSlow, s.cfg.MacdSignal); err == nil {
		if macd.Bullish() {
			out = append(out, s.signal(symbol, models.SignalMacdBullish, macd.Histogram, price,
				"MACD crossed above signal line"))
		} else if macd.Bearish() {
			out = append(out, s.signal(symbol, models.SignalMacdBearish, macd.Histogram, price,
				"MACD crossed below signal line"))
		}
	}

	if bb, err := indicators.Bollinger(closes, s.cfg.BollingerPeriod, s.cfg.BollingerStdDev, s.cfg.SqueezeFraction); err == nil && bb.Squeeze {
		out = append(out, s.signal(symbol, models.SignalSqueeze, bb.Bandwidth, price,
			"Bollinger bands contracted below recent average width"))
	}

	if ratio, err := indicators.VolumeRatio(series.Volumes(), s.cfg.VolumeLookback); err == nil && ratio > s.cfg.VolumeMultiplier {
		out = append(out, s.signal(symbol, models.SignalVolumeSpike, ratio, price,
			fmt.Sprintf("volume at %.1fx its %d-bar average", ratio, s.cfg.VolumeLookback)))
	}

	if high, _, err := indicators.Extremes(series.Highs()); err == nil {
		if indicators.NearHigh(price, high, s.cfg.BreakoutBandPct) {
			out = append(out, s.signal(symbol, models.SignalNear52WeekHigh, high, price,
				fmt.Sprintf("within %.1f%% of rolling high %.2f", s.cfg.BreakoutBandPct, high)))
		}
	}
	if _, low, err := indicators.Extremes(series.Lows()); err == nil {
		if indicators.NearLow(price, low, s.cfg.BreakoutBandPct) {
			out = append(out, s.signal(symbol, models.SignalNear52WeekLow, low, price,
				fmt.Sprintf("within %.1f%% of rolling low %.2f", s.cfg.BreakoutBandPct, low)))
		}
	}

	return out
}

func (s *Scanner) signal(symbol string, kind models.SignalKind, value, price float64, desc string) *models.Signal {
	return &models.Signal{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Kind:        kind,
		Value:       value,
		Price:       price,
		Description: desc,
		DetectedAt:  s.now(),
	}
}

func (s *Scanner) withinMarketHours(now time.Time) bool {
	mh := s.cfg.MarketHours
	if !mh.Enabled {
		return true
	}

	loc, err := time.LoadLocation(mh.Timezone)
	if err != nil {
		s.log.Warn("bad market hours timezone, gate disabled",
			logger.String("timezone", mh.Timezone), logger.Error(err))
		return true
	}
	local := now.In(loc)

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	open, err1 := parseClock(mh.Open)
	closeAt, err2 := parseClock(mh.Close)
	if err1 != nil || err2 != nil {
		return true
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= open && minutes <= closeAt
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
