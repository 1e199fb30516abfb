package screener

import "math"

// ScoreConfig holds the ranking weights and clip bands. The weights are a
// tunable business decision; the structural contract is that missing
// components contribute zero and each sub-score is monotonic within its band.
type ScoreConfig struct {
	LiquidityWeight float64
	MomentumWeight  float64
	ValueWeight     float64
	YieldWeight     float64

	// Clip bands for the sub-scores.
	MomentumBand float64 // momentum mapped linearly over [-band, +band]
	PERCeiling   float64 // PER at or above this scores 0
	YieldCap     float64 // yield at or above this scores 1
}

// DefaultScoreConfig returns the default ranking weights.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		LiquidityWeight: 0.30,
		MomentumWeight:  0.30,
		ValueWeight:     0.25,
		YieldWeight:     0.15,
		MomentumBand:    0.30,
		PERCeiling:      40,
		YieldCap:        0.05,
	}
}

func (sc ScoreConfig) isZero() bool {
	return sc.LiquidityWeight == 0 && sc.MomentumWeight == 0 &&
		sc.ValueWeight == 0 && sc.YieldWeight == 0
}

// Score combines the sub-scores into one finite ranking key. Nil inputs
// contribute zero; the result is never NaN or Inf.
func (sc ScoreConfig) Score(liquidity, momentum, per, yield *float64) float64 {
	var total float64
	if liquidity != nil && *liquidity > 0 {
		// Log scale: 1e10 JPY/day of turnover saturates the sub-score.
		total += sc.LiquidityWeight * clip01(math.Log10(*liquidity)/10)
	}
	if momentum != nil && sc.MomentumBand > 0 {
		total += sc.MomentumWeight * clip01((*momentum+sc.MomentumBand)/(2*sc.MomentumBand))
	}
	if per != nil && sc.PERCeiling > 0 {
		// Inverted: cheaper multiples score higher.
		total += sc.ValueWeight * clip01((sc.PERCeiling-*per)/sc.PERCeiling)
	}
	if yield != nil && sc.YieldCap > 0 {
		total += sc.YieldWeight * clip01(*yield/sc.YieldCap)
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return total
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
