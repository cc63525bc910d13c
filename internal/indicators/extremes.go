package indicators

// Extremes reports the rolling high and low of a series.
func Extremes(values []float64) (high, low float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrInsufficientData
	}
	high, low = values[0], values[0]
	for _, v := range values[1:] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low, nil
}

// NearHigh reports whether price is within bandPct percent below the high.
// A bandPct of 0.5 means within half a percent.
func NearHigh(price, high, bandPct float64) bool {
	if high <= 0 {
		return false
	}
	return price >= high*(1-bandPct/100)
}

// NearLow reports whether price is within bandPct percent above the low.
func NearLow(price, low, bandPct float64) bool {
	if low <= 0 {
		return false
	}
	return price <= low*(1+bandPct/100)
}
