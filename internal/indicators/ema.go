// Package indicators implements the technical indicator math. Every
// function here is pure: same inputs, same outputs, no clock, no I/O.
package indicators

import "errors"

// ErrInsufficientData indicates a series shorter than the indicator needs.
var ErrInsufficientData = errors.New("insufficient data for indicator")

// EMA computes the exponential moving average series for the given period.
// The first EMA value seeds from the SMA of the first period values, so the
// returned slice has len(values)-period+1 entries.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("ema period must be positive")
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}

	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)

	prev := seed
	for _, v := range values[period:] {
		prev = (v-prev)*k + prev
		out = append(out, prev)
	}
	return out, nil
}
