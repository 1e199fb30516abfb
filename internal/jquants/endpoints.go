package jquants

import (
	"context"
	"net/url"
	"sort"
)

// Typed accessors over the generic client. Each returns normalized records;
// handlers that need raw passthrough use GetJSON/GetList directly.

// DailyQuotesByCode fetches daily price bars for one instrument.
// from/to are optional YYYY-MM-DD bounds.
func (c *Client) DailyQuotesByCode(ctx context.Context, code, from, to string) ([]PriceBar, error) {
	params := url.Values{}
	params.Set("code", CanonicalCode(code))
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}

	recs, err := c.GetList(ctx, "/prices/daily_quotes", params, "daily_quotes")
	if err != nil {
		return nil, err
	}

	bars := make([]PriceBar, 0, len(recs))
	for _, rec := range recs {
		bars = append(bars, NormalizePriceBar(rec))
	}
	return bars, nil
}

// DailyQuotesByDate fetches the full market's bars for one trading day.
func (c *Client) DailyQuotesByDate(ctx context.Context, date string) ([]PriceBar, error) {
	params := url.Values{}
	params.Set("date", date)

	recs, err := c.GetList(ctx, "/prices/daily_quotes", params, "daily_quotes")
	if err != nil {
		return nil, err
	}

	bars := make([]PriceBar, 0, len(recs))
	for _, rec := range recs {
		bars = append(bars, NormalizePriceBar(rec))
	}
	return bars, nil
}

// TradingCalendar fetches calendar days in [from, to], sorted ascending.
func (c *Client) TradingCalendar(ctx context.Context, from, to string) ([]CalendarDay, error) {
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}

	recs, err := c.GetList(ctx, "/markets/trading_calendar", params, "trading_calendar")
	if err != nil {
		return nil, err
	}

	days := make([]CalendarDay, 0, len(recs))
	for _, rec := range recs {
		days = append(days, NormalizeCalendarDay(rec))
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// BusinessDays returns the most recent n business days (full or half) in
// [from, to], ascending. Returns fewer when the window has fewer.
func (c *Client) BusinessDays(ctx context.Context, from, to string, n int) ([]string, error) {
	days, err := c.TradingCalendar(ctx, from, to)
	if err != nil {
		return nil, err
	}

	business := make([]string, 0, len(days))
	for _, d := range days {
		if d.IsBusinessDay() {
			business = append(business, d.Date)
		}
	}

	if n > 0 && len(business) > n {
		business = business[len(business)-n:]
	}
	return business, nil
}

// ListedInfo fetches listed-instrument reference data. An empty code fetches
// the whole universe.
func (c *Client) ListedInfo(ctx context.Context, code string) ([]ListedCompany, error) {
	params := url.Values{}
	if code != "" {
		params.Set("code", CanonicalCode(code))
	}

	recs, err := c.GetList(ctx, "/listed/info", params, "info")
	if err != nil {
		return nil, err
	}

	companies := make([]ListedCompany, 0, len(recs))
	for _, rec := range recs {
		companies = append(companies, NormalizeListedCompany(rec))
	}
	return companies, nil
}

// Statements fetches normalized statement lines for one instrument,
// oldest disclosure first.
func (c *Client) Statements(ctx context.Context, code string) ([]StatementLine, error) {
	params := url.Values{}
	params.Set("code", CanonicalCode(code))

	recs, err := c.GetList(ctx, "/fins/statements", params, "statements")
	if err != nil {
		return nil, err
	}

	lines := make([]StatementLine, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, NormalizeStatement(rec))
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].DisclosedDate < lines[j].DisclosedDate })
	return lines, nil
}

// FinancialSummary fetches statements and derives the valuation inputs.
func (c *Client) FinancialSummary(ctx context.Context, code string) (FinSummary, error) {
	lines, err := c.Statements(ctx, code)
	if err != nil {
		return FinSummary{}, err
	}
	return SummarizeStatements(code, lines), nil
}

// WeeklyMargin fetches normalized weekly margin-interest records.
func (c *Client) WeeklyMargin(ctx context.Context, code string) ([]MarginRecord, error) {
	params := url.Values{}
	params.Set("code", CanonicalCode(code))

	recs, err := c.GetList(ctx, "/markets/weekly_margin_interest", params, "weekly_margin_interest")
	if err != nil {
		return nil, err
	}

	records := make([]MarginRecord, 0, len(recs))
	for _, rec := range recs {
		records = append(records, NormalizeWeeklyMargin(rec))
	}
	return records, nil
}

// DailyMargin fetches normalized daily public margin-interest records.
func (c *Client) DailyMargin(ctx context.Context, code string) ([]MarginRecord, error) {
	params := url.Values{}
	params.Set("code", CanonicalCode(code))

	recs, err := c.GetList(ctx, "/markets/daily_margin_interest", params, "daily_margin_interest")
	if err != nil {
		return nil, err
	}

	records := make([]MarginRecord, 0, len(recs))
	for _, rec := range recs {
		records = append(records, NormalizeDailyMargin(rec))
	}
	return records, nil
}
