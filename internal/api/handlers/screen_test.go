package handlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScreenConfig_Full(t *testing.T) {
	q := url.Values{
		"markets":        {"prime, growth"},
		"min_liquidity":  {"1e8"},
		"momentum_3m_gt": {"0.05"},
		"per_lt":         {"15"},
		"pbr_lt":         {"1.2"},
		"div_yield_gt":   {"0.02"},
		"limit":          {"25"},
		"fast":           {"true"},
		"budget_ms":      {"5000"},
		"max_scan":       {"200"},
		"debug":          {"1"},
	}

	cfg, err := parseScreenConfig(q)
	require.NoError(t, err)

	assert.Equal(t, []string{"prime", "growth"}, cfg.Markets)
	assert.Equal(t, 1e8, cfg.MinLiquidity)
	require.NotNil(t, cfg.Momentum3mGT)
	assert.Equal(t, 0.05, *cfg.Momentum3mGT)
	require.NotNil(t, cfg.PERLT)
	assert.Equal(t, 15.0, *cfg.PERLT)
	require.NotNil(t, cfg.PBRLT)
	assert.Equal(t, 1.2, *cfg.PBRLT)
	require.NotNil(t, cfg.DivYieldGT)
	assert.Equal(t, 0.02, *cfg.DivYieldGT)
	assert.Equal(t, 25, cfg.Limit)
	assert.True(t, cfg.FastLiquidity)
	assert.Equal(t, 5000, cfg.BudgetMS)
	assert.Equal(t, 200, cfg.MaxScan)
	assert.True(t, cfg.Debug)
}

func TestParseScreenConfig_Defaults(t *testing.T) {
	cfg, err := parseScreenConfig(url.Values{})
	require.NoError(t, err)

	assert.Empty(t, cfg.Markets)
	assert.Nil(t, cfg.Momentum3mGT, "absent threshold disables the predicate")
	assert.Nil(t, cfg.PERLT)
	assert.False(t, cfg.FastLiquidity)
	assert.False(t, cfg.Debug)
}

func TestParseScreenConfig_RejectsMalformedNumbers(t *testing.T) {
	for _, key := range []string{"min_liquidity", "momentum_3m_gt", "per_lt", "limit", "budget_ms"} {
		_, err := parseScreenConfig(url.Values{key: {"not-a-number"}})
		require.Error(t, err, key)
		assert.Contains(t, err.Error(), key)
	}
}
