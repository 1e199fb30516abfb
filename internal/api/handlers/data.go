package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// DataHandler serves the proxied market-data endpoints.
type DataHandler struct {
	client *jquants.Client
	logger *logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(client *jquants.Client, log *logger.Logger) *DataHandler {
	return &DataHandler{client: client, logger: log}
}

// DailyQuotes returns normalized daily price bars for one instrument.
// GET /api/prices/daily?code=&from=&to=
func (h *DataHandler) DailyQuotes(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameter: code")
		return
	}

	bars, err := h.client.DailyQuotesByCode(r.Context(), code, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}
	if len(bars) == 0 {
		respondError(w, http.StatusNotFound, "No price data for code "+jquants.CanonicalCode(code))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code": jquants.CanonicalCode(code),
		"bars": bars,
	})
}

// ListedInfo passes listed-instrument reference data through unmodified.
// GET /api/listed/info?code=
func (h *DataHandler) ListedInfo(w http.ResponseWriter, r *http.Request) {
	params := url.Values{}
	if code := r.URL.Query().Get("code"); code != "" {
		params.Set("code", jquants.CanonicalCode(code))
	}

	result, err := h.client.GetJSON(r.Context(), "/listed/info", params)
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Statements returns normalized statement lines plus the derived valuation
// summary for one instrument.
// GET /api/fins/statements?code=
func (h *DataHandler) Statements(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameter: code")
		return
	}

	lines, err := h.client.Statements(r.Context(), code)
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}
	if len(lines) == 0 {
		respondError(w, http.StatusNotFound, "No statements for code "+jquants.CanonicalCode(code))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":       jquants.CanonicalCode(code),
		"summary":    jquants.SummarizeStatements(code, lines),
		"statements": lines,
	})
}

// WeeklyMargin returns normalized weekly margin-interest records.
// GET /api/markets/weekly_margin_interest?code=
func (h *DataHandler) WeeklyMargin(w http.ResponseWriter, r *http.Request) {
	h.margin(w, r, h.client.WeeklyMargin)
}

// DailyMargin returns normalized daily public margin-interest records.
// GET /api/markets/daily_margin_interest?code=
func (h *DataHandler) DailyMargin(w http.ResponseWriter, r *http.Request) {
	h.margin(w, r, h.client.DailyMargin)
}

func (h *DataHandler) margin(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, code string) ([]jquants.MarginRecord, error)) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameter: code")
		return
	}

	records, err := fetch(r.Context(), code)
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "No margin data for code "+jquants.CanonicalCode(code))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":    jquants.CanonicalCode(code),
		"records": records,
	})
}

// TradingCalendar returns calendar days with their business-day division.
// GET /api/markets/trading_calendar?from=&to=
func (h *DataHandler) TradingCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := h.client.TradingCalendar(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days": days,
	})
}
