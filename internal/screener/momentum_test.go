package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestMomentum(t *testing.T) {
	closes := []*float64{f64(100), f64(105), f64(110)}

	m := Momentum(closes, 1)
	require.NotNil(t, m)
	assert.InDelta(t, 110.0/105.0-1, *m, 1e-12)

	m = Momentum(closes, 2)
	require.NotNil(t, m)
	assert.InDelta(t, 0.10, *m, 1e-12)
}

func TestMomentum_ClampsToEarliestBar(t *testing.T) {
	closes := []*float64{f64(100), f64(120)}

	// Horizon far beyond the series degrades to return since the first bar.
	m := Momentum(closes, Horizon12m)
	require.NotNil(t, m)
	assert.InDelta(t, 0.20, *m, 1e-12)
}

func TestMomentum_NullSafety(t *testing.T) {
	assert.Nil(t, Momentum(nil, 1), "empty series")
	assert.Nil(t, Momentum([]*float64{f64(100), nil}, 1), "missing latest close")
	assert.Nil(t, Momentum([]*float64{nil, f64(100)}, 1), "missing historical close")
	assert.Nil(t, Momentum([]*float64{f64(0), f64(100)}, 1), "zero historical close must not divide")
	assert.Nil(t, Momentum([]*float64{f64(100)}, -1), "negative horizon")
}

func TestAvgTurnover(t *testing.T) {
	turnovers := []*float64{f64(1e8), f64(2e8), f64(1.5e8), f64(3e8), f64(2.5e8)}

	avg := AvgTurnover(turnovers, 5)
	require.NotNil(t, avg)
	assert.InDelta(t, 2e8, *avg, 1e-6)

	// Window shorter than the series takes the trailing slice.
	avg = AvgTurnover(turnovers, 2)
	require.NotNil(t, avg)
	assert.InDelta(t, 2.75e8, *avg, 1e-6)

	// Window longer than the series uses what exists.
	avg = AvgTurnover(turnovers[:2], 20)
	require.NotNil(t, avg)
	assert.InDelta(t, 1.5e8, *avg, 1e-6)
}

func TestAvgTurnover_MissingDays(t *testing.T) {
	// Missing days are excluded from the mean, not treated as zero.
	avg := AvgTurnover([]*float64{f64(1e8), nil, f64(3e8)}, 3)
	require.NotNil(t, avg)
	assert.InDelta(t, 2e8, *avg, 1e-6)

	assert.Nil(t, AvgTurnover([]*float64{nil, nil}, 2))
	assert.Nil(t, AvgTurnover(nil, 5))
}

func TestLatestTurnover(t *testing.T) {
	got := LatestTurnover([]*float64{f64(1e8), f64(2.5e8)})
	require.NotNil(t, got)
	assert.Equal(t, 2.5e8, *got)

	assert.Nil(t, LatestTurnover(nil))
	assert.Nil(t, LatestTurnover([]*float64{f64(1e8), nil}), "latest day without a figure")
}
