package indicators

import (
	"github.com/montanaflynn/stats"
)

// BollingerResult is the latest Bollinger band state.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
	// Bandwidth is (upper-lower)/middle, the normalized band width.
	Bandwidth float64
	// PercentB places the last close within the band: 0 at the lower
	// band, 1 at the upper.
	PercentB float64
	// Squeeze is true when the current bandwidth has contracted below a
	// configured fraction of its recent average.
	Squeeze bool
}

// Bollinger computes mean +/- stdDevs standard deviations over the trailing
// period. The squeeze flag compares the current bandwidth against the
// average bandwidth of the preceding windows; squeezeFraction of 0.5 means
// the band must be at less than half its recent typical width.
func Bollinger(closes []float64, period int, stdDevs, squeezeFraction float64) (BollingerResult, error) {
	if period <= 1 {
		return BollingerResult{}, ErrInsufficientData
	}
	if len(closes) < period {
		return BollingerResult{}, ErrInsufficientData
	}

	bw, res, err := bandAt(closes, len(closes), period, stdDevs)
	if err != nil {
		return BollingerResult{}, err
	}
	res.Bandwidth = bw

	// Average bandwidth over up to `period` preceding windows.
	var sum float64
	var n int
	for end := len(closes) - 1; end >= period && n < period; end-- {
		w, _, err := bandAt(closes, end, period, stdDevs)
		if err != nil {
			break
		}
		sum += w
		n++
	}
	if n > 0 {
		res.Squeeze = bw < squeezeFraction*(sum/float64(n))
	}

	return res, nil
}

func bandAt(closes []float64, end, period int, stdDevs float64) (float64, BollingerResult, error) {
	window := closes[end-period : end]

	mean, err := stats.Mean(window)
	if err != nil {
		return 0, BollingerResult{}, err
	}
	sd, err := stats.StandardDeviationPopulation(window)
	if err != nil {
		return 0, BollingerResult{}, err
	}

	upper := mean + stdDevs*sd
	lower := mean - stdDevs*sd

	res := BollingerResult{Upper: upper, Middle: mean, Lower: lower}
	if upper != lower {
		res.PercentB = (window[len(window)-1] - lower) / (upper - lower)
	}

	var bw float64
	if mean != 0 {
		bw = (upper - lower) / mean
	}
	return bw, res, nil
}
