package screener

// Trading-day horizons approximating 3/6/12 calendar months.
const (
	Horizon3m  = 63
	Horizon6m  = 126
	Horizon12m = 252
)

// Momentum returns the trailing return over the given horizon:
// latestClose / closeAtHorizon - 1. The series is ascending by trading day.
// Horizons longer than the series clamp to the earliest bar, degrading to
// "return since earliest available data". Returns nil when either close is
// missing or the historical close is zero; never NaN or Inf.
func Momentum(closes []*float64, horizon int) *float64 {
	if len(closes) == 0 || horizon < 0 {
		return nil
	}

	latest := closes[len(closes)-1]

	idx := len(closes) - 1 - horizon
	if idx < 0 {
		idx = 0
	}
	past := closes[idx]

	if latest == nil || past == nil || *past == 0 {
		return nil
	}

	r := *latest / *past - 1
	return &r
}
