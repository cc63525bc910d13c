package indicators

// RSI computes the relative strength index over the trailing lookback
// deltas using simple averages of gains and losses. The result is always
// in [0, 100]; an all-gain window pins at 100 and an all-loss window at 0.
func RSI(closes []float64, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, ErrInsufficientData
	}
	if len(closes) < lookback+1 {
		return 0, ErrInsufficientData
	}

	window := closes[len(closes)-lookback-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(lookback)
	avgLoss := losses / float64(lookback)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
