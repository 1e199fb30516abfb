package screener

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// DataSource is the slice of the upstream client the pipeline consumes.
// *jquants.Client satisfies it.
type DataSource interface {
	ListedInfo(ctx context.Context, code string) ([]jquants.ListedCompany, error)
	BusinessDays(ctx context.Context, from, to string, n int) ([]string, error)
	DailyQuotesByDate(ctx context.Context, date string) ([]jquants.PriceBar, error)
	FinancialSummary(ctx context.Context, code string) (jquants.FinSummary, error)
}

// Config holds one screening request's parameters.
type Config struct {
	Markets      []string // market-segment filter, empty = all
	MinLiquidity float64  // minimum average daily turnover

	LiquidityWindow int  // trailing trading days for the average, default 20
	FastLiquidity   bool // latest-day turnover instead of the windowed average
	HistoryDays     int  // trading days of price history to load, default 252

	// Filter thresholds; nil disables the predicate. A nil metric never
	// passes an enabled predicate.
	Momentum3mGT *float64
	PERLT        *float64
	PBRLT        *float64
	DivYieldGT   *float64

	Limit    int // result rows, default 50
	BudgetMS int // wall-clock budget, 0 = unbounded
	MaxScan  int // scanned-candidate ceiling, 0 = unbounded
	Debug    bool

	Score ScoreConfig
}

func (cfg Config) withDefaults() Config {
	if cfg.LiquidityWindow <= 0 {
		cfg.LiquidityWindow = 20
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = Horizon12m
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.Score.isZero() {
		cfg.Score = DefaultScoreConfig()
	}
	return cfg
}

// Row is one ranked screening result. Ratio fields are nil when the
// underlying data is missing; Score is always finite.
type Row struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`

	AvgTradingValue *float64 `json:"avg_trading_value"`
	Momentum3m      *float64 `json:"momentum_3m"`
	Momentum6m      *float64 `json:"momentum_6m"`
	Momentum12m     *float64 `json:"momentum_12m"`
	PER             *float64 `json:"per"`
	PBR             *float64 `json:"pbr"`
	DividendYield   *float64 `json:"dividend_yield"`

	Score float64 `json:"score"`
}

// Result is one screening run's outcome. Truncation is not an error; the
// rows accumulated before the cutoff are still ranked and returned.
type Result struct {
	Rows           []Row    `json:"rows"`
	Scanned        int      `json:"scanned"`
	Truncated      bool     `json:"truncated"`
	TruncateReason string   `json:"truncate_reason,omitempty"`
	Errors         []string `json:"errors,omitempty"` // populated under Debug
}

// series holds one instrument's price history aligned to the trading-day
// window, ascending.
type series struct {
	closes    []*float64
	turnovers []*float64
}

type candidate struct {
	company   jquants.ListedCompany
	liquidity float64
	ser       *series
}

// Screener is the read-only batch screening pipeline.
type Screener struct {
	data   DataSource
	logger *logger.Logger

	now func() time.Time
}

// New creates a screener over the given data source.
func New(data DataSource, log *logger.Logger) *Screener {
	return &Screener{
		data:   data,
		logger: log,
		now:    time.Now,
	}
}

// Run executes one screening request: universe → liquidity filter → sort by
// liquidity descending → cheap momentum filter → expensive valuation fetch →
// budget cutoffs → score → rank. The liquidity-descending evaluation order is
// a contract, not an optimization: under a budget it decides which
// instruments get valuated at all.
func (s *Screener) Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	start := s.now()

	var deadline time.Time
	if cfg.BudgetMS > 0 {
		deadline = start.Add(time.Duration(cfg.BudgetMS) * time.Millisecond)
	}

	companies, err := s.data.ListedInfo(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetch listed universe: %w", err)
	}
	universe := filterMarkets(companies, cfg.Markets)

	history := cfg.HistoryDays
	if cfg.FastLiquidity && cfg.Momentum3mGT == nil {
		// Fast mode without a momentum predicate needs only the latest day.
		history = 1
	}

	seriesByCode, days, err := s.loadHistory(ctx, start, universe, history)
	if err != nil {
		return nil, err
	}

	candidates := s.buildCandidates(universe, seriesByCode, cfg)

	s.logger.WithFields(map[string]interface{}{
		"universe":   len(universe),
		"days":       len(days),
		"candidates": len(candidates),
		"fast":       cfg.FastLiquidity,
	}).Debug("Screening candidate set built")

	result := &Result{}
	for _, cand := range candidates {
		if len(result.Rows) >= cfg.Limit {
			result.truncate("limit")
			break
		}
		if cfg.MaxScan > 0 && result.Scanned >= cfg.MaxScan {
			result.truncate("max_scan")
			break
		}
		if !deadline.IsZero() && s.now().After(deadline) {
			result.truncate("budget")
			break
		}
		result.Scanned++

		m3 := Momentum(cand.ser.closes, Horizon3m)
		if cfg.Momentum3mGT != nil && (m3 == nil || *m3 <= *cfg.Momentum3mGT) {
			continue
		}

		// The one expensive step: a per-instrument statements fetch.
		fin, err := s.data.FinancialSummary(ctx, cand.company.Code)
		if err != nil {
			s.logger.WithError(err).WithField("code", cand.company.Code).
				Warn("Valuation fetch failed, skipping instrument")
			if cfg.Debug {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", cand.company.Code, err))
			}
			continue
		}

		price := latestClose(cand.ser.closes)
		per := PER(price, fin.TrailingEPS)
		pbr := PBR(price, fin.BookValuePerShare)
		yield := DividendYield(price, fin.DividendPerShare)

		if cfg.PERLT != nil && (per == nil || *per >= *cfg.PERLT) {
			continue
		}
		if cfg.PBRLT != nil && (pbr == nil || *pbr >= *cfg.PBRLT) {
			continue
		}
		if cfg.DivYieldGT != nil && (yield == nil || *yield <= *cfg.DivYieldGT) {
			continue
		}

		liq := cand.liquidity
		result.Rows = append(result.Rows, Row{
			Code:            cand.company.Code,
			Name:            cand.company.Name,
			Market:          cand.company.Market,
			AvgTradingValue: &liq,
			Momentum3m:      m3,
			Momentum6m:      Momentum(cand.ser.closes, Horizon6m),
			Momentum12m:     Momentum(cand.ser.closes, Horizon12m),
			PER:             per,
			PBR:             pbr,
			DividendYield:   yield,
			Score:           cfg.Score.Score(&liq, m3, per, yield),
		})
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		if result.Rows[i].Score != result.Rows[j].Score {
			return result.Rows[i].Score > result.Rows[j].Score
		}
		return result.Rows[i].Code < result.Rows[j].Code
	})

	s.logger.WithFields(map[string]interface{}{
		"rows":      len(result.Rows),
		"scanned":   result.Scanned,
		"truncated": result.Truncated,
		"elapsed":   s.now().Sub(start).String(),
	}).Info("Screening run complete")

	return result, nil
}

func (r *Result) truncate(reason string) {
	r.Truncated = true
	r.TruncateReason = reason
}

// loadHistory fetches the last `history` business days and the full market's
// bars for each, keyed by canonical code, restricted to the universe.
func (s *Screener) loadHistory(ctx context.Context, start time.Time, universe []jquants.ListedCompany, history int) (map[string]*series, []string, error) {
	to := start.Format("2006-01-02")
	from := start.AddDate(0, 0, -(history*2 + 14)).Format("2006-01-02")

	days, err := s.data.BusinessDays(ctx, from, to, history)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch trading calendar: %w", err)
	}
	if len(days) == 0 {
		return nil, nil, fmt.Errorf("no business days in calendar window %s..%s", from, to)
	}

	inUniverse := make(map[string]bool, len(universe))
	for _, c := range universe {
		inUniverse[c.Code] = true
	}

	seriesByCode := make(map[string]*series)
	for i, day := range days {
		bars, err := s.data.DailyQuotesByDate(ctx, day)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch daily quotes for %s: %w", day, err)
		}
		for _, bar := range bars {
			if !inUniverse[bar.Code] {
				continue
			}
			ser, ok := seriesByCode[bar.Code]
			if !ok {
				ser = &series{
					closes:    make([]*float64, len(days)),
					turnovers: make([]*float64, len(days)),
				}
				seriesByCode[bar.Code] = ser
			}
			ser.closes[i] = bar.Close
			ser.turnovers[i] = bar.Turnover
		}
	}

	return seriesByCode, days, nil
}

// buildCandidates applies the liquidity threshold and sorts descending by
// liquidity, tie-broken by code for determinism.
func (s *Screener) buildCandidates(universe []jquants.ListedCompany, seriesByCode map[string]*series, cfg Config) []candidate {
	candidates := make([]candidate, 0, len(universe))
	for _, company := range universe {
		ser, ok := seriesByCode[company.Code]
		if !ok {
			continue
		}

		var liq *float64
		if cfg.FastLiquidity {
			liq = LatestTurnover(ser.turnovers)
		} else {
			liq = AvgTurnover(ser.turnovers, cfg.LiquidityWindow)
		}
		if liq == nil || *liq < cfg.MinLiquidity {
			continue
		}

		candidates = append(candidates, candidate{company: company, liquidity: *liq, ser: ser})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].liquidity != candidates[j].liquidity {
			return candidates[i].liquidity > candidates[j].liquidity
		}
		return candidates[i].company.Code < candidates[j].company.Code
	})

	return candidates
}

func filterMarkets(companies []jquants.ListedCompany, markets []string) []jquants.ListedCompany {
	if len(markets) == 0 {
		return companies
	}

	keep := make([]jquants.ListedCompany, 0, len(companies))
	for _, c := range companies {
		market := strings.ToLower(c.Market)
		for _, want := range markets {
			if strings.Contains(market, strings.ToLower(strings.TrimSpace(want))) {
				keep = append(keep, c)
				break
			}
		}
	}
	return keep
}
