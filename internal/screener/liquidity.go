package screener

// AvgTurnover returns the mean of the observed turnovers in the trailing
// window of the ascending series. Missing days are excluded from the mean
// rather than counted as zero. Returns nil when nothing was observed.
func AvgTurnover(turnovers []*float64, window int) *float64 {
	if window <= 0 || len(turnovers) == 0 {
		return nil
	}

	start := len(turnovers) - window
	if start < 0 {
		start = 0
	}

	var sum float64
	count := 0
	for _, t := range turnovers[start:] {
		if t != nil {
			sum += *t
			count++
		}
	}

	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// LatestTurnover returns the most recent day's turnover, the cheap stand-in
// for the windowed average. Nil when the latest day has no figure.
func LatestTurnover(turnovers []*float64) *float64 {
	if len(turnovers) == 0 {
		return nil
	}
	return turnovers[len(turnovers)-1]
}
