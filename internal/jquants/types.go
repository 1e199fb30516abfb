package jquants

// Normalized record shapes. Nil pointer fields mean "insufficient disclosed
// data", never zero — upstream sentinels and malformed values degrade
// per-field, not per-record.

// PriceBar is a normalized daily price bar.
type PriceBar struct {
	Date     string   `json:"date"`
	Code     string   `json:"code"`
	Close    *float64 `json:"close"`
	Turnover *float64 `json:"turnover"` // traded value (売買代金)
}

// MarginRecord is a normalized margin-balance record, covering both the
// weekly and the daily-public endpoint variants.
type MarginRecord struct {
	Date        string   `json:"date"`
	Code        string   `json:"code"`
	LongVolume  *float64 `json:"longVolume"`
	ShortVolume *float64 `json:"shortVolume"`
	Net         *float64 `json:"net"`   // long - short
	Ratio       *float64 `json:"ratio"` // short / long, nil when long is 0
}

// StatementLine is one normalized financial-statement disclosure.
type StatementLine struct {
	DisclosedDate     string   `json:"disclosedDate"`
	Code              string   `json:"code"`
	PeriodType        string   `json:"periodType"` // 1Q, 2Q, 3Q, FY
	EPS               *float64 `json:"eps"`
	BPS               *float64 `json:"bps"`
	Profit            *float64 `json:"profit"`
	Equity            *float64 `json:"equity"`
	TotalAssets       *float64 `json:"totalAssets"`
	DividendAnnual    *float64 `json:"dividendAnnual"`
	SharesOutstanding *float64 `json:"sharesOutstanding"`
}

// FinSummary is the derived per-instrument financial summary.
type FinSummary struct {
	Code              string   `json:"code"`
	TrailingEPS       *float64 `json:"trailingEPS"`
	BookValuePerShare *float64 `json:"bookValuePerShare"`
	DividendPerShare  *float64 `json:"dividendPerShare"`
	ReturnOnEquity    *float64 `json:"returnOnEquity"`
	ReturnOnAssets    *float64 `json:"returnOnAssets"`
}

// CalendarDay is one trading-calendar entry.
type CalendarDay struct {
	Date            string `json:"date"`
	HolidayDivision string `json:"holidayDivision"`
}

// IsBusinessDay reports whether the day is a full (1) or half (2) business
// day. Full holidays are excluded from lookback windows.
func (d CalendarDay) IsBusinessDay() bool {
	return d.HolidayDivision == "1" || d.HolidayDivision == "2"
}

// ListedCompany is a normalized listed-instrument reference record.
type ListedCompany struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
}
