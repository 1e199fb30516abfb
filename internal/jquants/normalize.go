package jquants

import (
	"strconv"
	"strings"
)

// The upstream schema has cycled through several field naming conventions
// (PascalCase, snake_case, abbreviated forms) across API versions. Each
// logical attribute carries a ranked alias list; the first alias present
// with a coercible non-sentinel value wins. New naming variants are handled
// by extending these lists, not by adding code paths.

var (
	dateAliases = []string{"Date", "date"}
	codeAliases = []string{"Code", "code", "LocalCode"}

	closeAliases    = []string{"AdjustmentClose", "Close", "close", "EndPrice"}
	turnoverAliases = []string{"TurnoverValue", "turnover_value", "Turnover", "TradingValue"}

	// Weekly margin interest fields, oldest convention last.
	weeklyLongAliases  = []string{"LongMarginTradeVolume", "long_margin_trade_volume", "MarginBalanceLong"}
	weeklyShortAliases = []string{"ShortMarginTradeVolume", "short_margin_trade_volume", "MarginBalanceShort"}

	// Daily public margin ("daily_margin_interest") uses its own spellings.
	dailyLongAliases  = []string{"MarginBuyTotal", "margin_buy_total", "LongMarginOutstanding", "BuyMargin"}
	dailyShortAliases = []string{"MarginSellTotal", "margin_sell_total", "ShortMarginOutstanding", "SellMargin"}

	disclosedDateAliases = []string{"DisclosedDate", "disclosed_date"}
	periodTypeAliases    = []string{"TypeOfCurrentPeriod", "type_of_current_period", "CurrentPeriodType"}
	epsAliases           = []string{"EarningsPerShare", "earnings_per_share", "EPS"}
	bpsAliases           = []string{"BookValuePerShare", "book_value_per_share", "BPS"}
	profitAliases        = []string{"Profit", "NetIncome", "profit"}
	equityAliases        = []string{"Equity", "equity", "NetAssets"}
	totalAssetsAliases   = []string{"TotalAssets", "total_assets"}
	dividendAliases      = []string{"ResultDividendPerShareAnnual", "ForecastDividendPerShareAnnual", "DividendPerShareAnnual", "AnnualDividendPerShare"}
	sharesAliases        = []string{"NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock", "IssuedShares", "issued_shares"}

	companyNameAliases = []string{"CompanyName", "CompanyNameEnglish", "company_name", "Name"}
	marketAliases      = []string{"MarketCodeName", "MarketCode", "market_code_name", "Market", "Section"}

	holidayDivisionAliases = []string{"HolidayDivision", "holiday_division", "HolidayDiv"}
)

// sentinels the upstream emits for "no data". Never coerced to zero.
var sentinelValues = map[string]bool{
	"":  true,
	"-": true,
	"*": true,
	"ー": true,
}

// parseNumber coerces a loosely-typed JSON value to a float. Sentinel and
// malformed values yield nil.
func parseNumber(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		f := n
		return &f
	case int:
		f := float64(n)
		return &f
	case string:
		s := strings.TrimSpace(n)
		if sentinelValues[s] {
			return nil
		}
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// pickNumber returns the first alias present with a coercible non-sentinel
// numeric value.
func pickNumber(rec map[string]interface{}, aliases []string) *float64 {
	for _, alias := range aliases {
		if raw, ok := rec[alias]; ok {
			if f := parseNumber(raw); f != nil {
				return f
			}
		}
	}
	return nil
}

// pickString returns the first alias present with a non-sentinel string.
func pickString(rec map[string]interface{}, aliases []string) string {
	for _, alias := range aliases {
		if raw, ok := rec[alias]; ok {
			if s, ok := raw.(string); ok {
				s = strings.TrimSpace(s)
				if !sentinelValues[s] {
					return s
				}
			}
		}
	}
	return ""
}

// CanonicalCode maps a raw instrument code token to the 4-digit root code.
// The provider sometimes emits a 5-digit form with a trailing classification
// digit; that digit is dropped. The function is idempotent.
func CanonicalCode(raw string) string {
	s := strings.TrimSpace(raw)

	if len(s) == 5 && isDigits(s) {
		return s[:4]
	}
	if len(s) >= 4 && isDigits(s[:4]) {
		return s[:4]
	}
	if len(s) < 4 {
		return strings.Repeat("0", 4-len(s)) + s
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePriceBar maps a raw daily-quote record to a PriceBar.
func NormalizePriceBar(rec map[string]interface{}) PriceBar {
	return PriceBar{
		Date:     pickString(rec, dateAliases),
		Code:     CanonicalCode(pickString(rec, codeAliases)),
		Close:    pickNumber(rec, closeAliases),
		Turnover: pickNumber(rec, turnoverAliases),
	}
}

// NormalizeWeeklyMargin maps a raw weekly margin-interest record.
func NormalizeWeeklyMargin(rec map[string]interface{}) MarginRecord {
	return normalizeMargin(rec, weeklyLongAliases, weeklyShortAliases)
}

// NormalizeDailyMargin maps a raw daily public margin-interest record.
func NormalizeDailyMargin(rec map[string]interface{}) MarginRecord {
	return normalizeMargin(rec, dailyLongAliases, dailyShortAliases)
}

func normalizeMargin(rec map[string]interface{}, longAliases, shortAliases []string) MarginRecord {
	m := MarginRecord{
		Date:        pickString(rec, dateAliases),
		Code:        CanonicalCode(pickString(rec, codeAliases)),
		LongVolume:  pickNumber(rec, longAliases),
		ShortVolume: pickNumber(rec, shortAliases),
	}

	if m.LongVolume != nil && m.ShortVolume != nil {
		net := *m.LongVolume - *m.ShortVolume
		m.Net = &net

		if *m.LongVolume != 0 {
			ratio := *m.ShortVolume / *m.LongVolume
			m.Ratio = &ratio
		}
	}

	return m
}

// NormalizeStatement maps a raw financial-statement record to one line.
func NormalizeStatement(rec map[string]interface{}) StatementLine {
	return StatementLine{
		DisclosedDate:     pickString(rec, disclosedDateAliases),
		Code:              CanonicalCode(pickString(rec, codeAliases)),
		PeriodType:        pickString(rec, periodTypeAliases),
		EPS:               pickNumber(rec, epsAliases),
		BPS:               pickNumber(rec, bpsAliases),
		Profit:            pickNumber(rec, profitAliases),
		Equity:            pickNumber(rec, equityAliases),
		TotalAssets:       pickNumber(rec, totalAssetsAliases),
		DividendAnnual:    pickNumber(rec, dividendAliases),
		SharesOutstanding: pickNumber(rec, sharesAliases),
	}
}

// NormalizeCalendarDay maps a raw trading-calendar record.
func NormalizeCalendarDay(rec map[string]interface{}) CalendarDay {
	return CalendarDay{
		Date:            pickString(rec, dateAliases),
		HolidayDivision: pickString(rec, holidayDivisionAliases),
	}
}

// NormalizeListedCompany maps a raw listed-info record.
func NormalizeListedCompany(rec map[string]interface{}) ListedCompany {
	return ListedCompany{
		Code:   CanonicalCode(pickString(rec, codeAliases)),
		Name:   pickString(rec, companyNameAliases),
		Market: pickString(rec, marketAliases),
	}
}

// SummarizeStatements derives the per-instrument financial summary from its
// disclosed statement lines, most recent first wins. Trailing EPS is the sum
// of up to the 4 most recent disclosures carrying EPS; when none carry EPS it
// falls back to trailing profit divided by shares outstanding.
func SummarizeStatements(code string, lines []StatementLine) FinSummary {
	summary := FinSummary{Code: CanonicalCode(code)}

	// Lines arrive oldest-first from the provider; walk backwards.
	var epsSum float64
	epsCount := 0
	var profitSum float64
	profitCount := 0

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]

		if line.EPS != nil && epsCount < 4 {
			epsSum += *line.EPS
			epsCount++
		}
		if line.Profit != nil && profitCount < 4 {
			profitSum += *line.Profit
			profitCount++
		}

		if summary.BookValuePerShare == nil && line.BPS != nil {
			summary.BookValuePerShare = line.BPS
		}
		if summary.DividendPerShare == nil && line.DividendAnnual != nil {
			summary.DividendPerShare = line.DividendAnnual
		}
		if summary.ReturnOnEquity == nil && line.Profit != nil && line.Equity != nil && *line.Equity != 0 {
			roe := *line.Profit / *line.Equity
			summary.ReturnOnEquity = &roe
		}
		if summary.ReturnOnAssets == nil && line.Profit != nil && line.TotalAssets != nil && *line.TotalAssets != 0 {
			roa := *line.Profit / *line.TotalAssets
			summary.ReturnOnAssets = &roa
		}
	}

	if epsCount > 0 {
		summary.TrailingEPS = &epsSum
	} else if profitCount > 0 {
		// Derive from trailing profit when per-share figures are absent.
		for i := len(lines) - 1; i >= 0; i-- {
			if lines[i].SharesOutstanding != nil && *lines[i].SharesOutstanding > 0 {
				eps := profitSum / *lines[i].SharesOutstanding
				summary.TrailingEPS = &eps
				break
			}
		}
	}

	return summary
}
