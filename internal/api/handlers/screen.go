package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hayasaka/jqproxy/internal/screener"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// ScreenHandler runs the screening pipeline.
type ScreenHandler struct {
	screener *screener.Screener
	repo     *screener.Repository // nil when postgres is not configured
	logger   *logger.Logger
}

// NewScreenHandler creates a new screening handler.
func NewScreenHandler(s *screener.Screener, repo *screener.Repository, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{screener: s, repo: repo, logger: log}
}

// Screen runs one screening request.
// GET /api/screen?markets=&min_liquidity=&momentum_3m_gt=&per_lt=&pbr_lt=&div_yield_gt=&limit=&fast=&budget_ms=&max_scan=&debug=
func (h *ScreenHandler) Screen(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseScreenConfig(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.screener.Run(r.Context(), cfg)
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, screenResponse(cfg, result))
}

// Snapshot runs a screening request and persists it.
// POST /api/screen/snapshot
func (h *ScreenHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Snapshot persistence requires a database")
		return
	}

	cfg, err := parseScreenConfig(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.screener.Run(r.Context(), cfg)
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}

	runID, err := h.repo.SaveRun(r.Context(), cfg, result)
	if err != nil {
		h.logger.WithError(err).Error("Failed to persist screening snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to persist snapshot")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"rows":    len(result.Rows),
		"scanned": result.Scanned,
	})
}

// screenResponse shapes the pipeline result for the caller. Truncation
// metadata and per-instrument errors are surfaced only under debug.
func screenResponse(cfg screener.Config, result *screener.Result) map[string]interface{} {
	resp := map[string]interface{}{
		"rows":    result.Rows,
		"scanned": result.Scanned,
	}
	if cfg.Debug {
		resp["truncated"] = result.Truncated
		resp["truncate_reason"] = result.TruncateReason
		resp["errors"] = result.Errors
	}
	return resp
}

// parseScreenConfig maps query parameters onto a pipeline config.
func parseScreenConfig(q url.Values) (screener.Config, error) {
	var cfg screener.Config

	if raw := q.Get("markets"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.Markets = append(cfg.Markets, m)
			}
		}
	}

	var err error
	if cfg.MinLiquidity, err = parseFloat(q, "min_liquidity"); err != nil {
		return cfg, err
	}
	if cfg.Momentum3mGT, err = parseOptFloat(q, "momentum_3m_gt"); err != nil {
		return cfg, err
	}
	if cfg.PERLT, err = parseOptFloat(q, "per_lt"); err != nil {
		return cfg, err
	}
	if cfg.PBRLT, err = parseOptFloat(q, "pbr_lt"); err != nil {
		return cfg, err
	}
	if cfg.DivYieldGT, err = parseOptFloat(q, "div_yield_gt"); err != nil {
		return cfg, err
	}
	if cfg.Limit, err = parseInt(q, "limit"); err != nil {
		return cfg, err
	}
	if cfg.BudgetMS, err = parseInt(q, "budget_ms"); err != nil {
		return cfg, err
	}
	if cfg.MaxScan, err = parseInt(q, "max_scan"); err != nil {
		return cfg, err
	}

	cfg.FastLiquidity = q.Get("fast") == "true" || q.Get("fast") == "1"
	cfg.Debug = q.Get("debug") == "true" || q.Get("debug") == "1"

	return cfg, nil
}

func parseFloat(q url.Values, key string) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

func parseOptFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

func parseInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
