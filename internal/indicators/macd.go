package indicators

// MACDResult holds the latest MACD state plus the prior histogram value so
// callers can detect a crossover without recomputing the series.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
	// PrevHistogram is the histogram one bar earlier.
	PrevHistogram float64
}

// Bullish reports a crossover from below to at-or-above the signal line on
// the latest bar.
func (r MACDResult) Bullish() bool {
	return r.PrevHistogram < 0 && r.Histogram >= 0
}

// Bearish reports a crossover from at-or-above to below the signal line on
// the latest bar.
func (r MACDResult) Bearish() bool {
	return r.PrevHistogram >= 0 && r.Histogram < 0
}

// MACD computes the moving average convergence divergence with the given
// fast/slow/signal periods. Requires slow+signal bars of history.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return MACDResult{}, ErrInsufficientData
	}
	if len(closes) < slow+signal {
		return MACDResult{}, ErrInsufficientData
	}

	fastEMA, err := EMA(closes, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowEMA, err := EMA(closes, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// Align: slowEMA starts (slow-fast) bars later than fastEMA.
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalEMA, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, err
	}
	if len(signalEMA) < 2 {
		return MACDResult{}, ErrInsufficientData
	}

	last := len(signalEMA) - 1
	macdLast := line[len(line)-1]
	macdPrev := line[len(line)-2]

	return MACDResult{
		MACD:          macdLast,
		Signal:        signalEMA[last],
		Histogram:     macdLast - signalEMA[last],
		PrevHistogram: macdPrev - signalEMA[last-1],
	}, nil
}
