package indicators

// VolumeRatio compares the most recent volume against the average of the
// preceding lookback bars. A ratio of 2.0 means today traded at twice its
// typical volume.
func VolumeRatio(volumes []float64, lookback int) (float64, error) {
	if lookback <= 0 || len(volumes) < lookback+1 {
		return 0, ErrInsufficientData
	}

	window := volumes[len(volumes)-lookback-1 : len(volumes)-1]
	var sum float64
	for _, v := range window {
		sum += v
	}
	if sum == 0 {
		return 0, ErrInsufficientData
	}

	avg := sum / float64(lookback)
	return volumes[len(volumes)-1] / avg, nil
}
