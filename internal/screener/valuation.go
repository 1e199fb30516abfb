package screener

// PER returns latestClose / trailingEPS. Undefined (nil) when either input is
// missing or EPS is non-positive; a loss-making company has no meaningful
// price multiple.
func PER(latestClose, trailingEPS *float64) *float64 {
	if latestClose == nil || trailingEPS == nil || *trailingEPS <= 0 {
		return nil
	}
	per := *latestClose / *trailingEPS
	return &per
}

// PBR returns latestClose / bookValuePerShare, nil when either input is
// missing or book value is non-positive.
func PBR(latestClose, bookValuePerShare *float64) *float64 {
	if latestClose == nil || bookValuePerShare == nil || *bookValuePerShare <= 0 {
		return nil
	}
	pbr := *latestClose / *bookValuePerShare
	return &pbr
}

// DividendYield returns annualDividend / latestClose. A company with price
// data but no disclosed dividend yields 0, not nil: "pays no dividend" is a
// known fact, "no price data" is not.
func DividendYield(latestClose, annualDividend *float64) *float64 {
	if latestClose == nil || *latestClose == 0 {
		return nil
	}
	var y float64
	if annualDividend != nil {
		y = *annualDividend / *latestClose
	}
	return &y
}

// latestClose returns the most recent non-nil close in the ascending series.
// Valuation tolerates a stale price; momentum does not.
func latestClose(closes []*float64) *float64 {
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			return closes[i]
		}
	}
	return nil
}
