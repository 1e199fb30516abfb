package handlers

import (
	"net/http"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/config"
)

// HealthHandler reports process and credential health.
type HealthHandler struct {
	config *config.Config
	tokens *jquants.TokenManager
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(cfg *config.Config, tokens *jquants.TokenManager) *HealthHandler {
	return &HealthHandler{config: cfg, tokens: tokens}
}

// Health returns server health status.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"service":            "jqproxy",
		"env":                h.config.Env,
		"token_remaining_ms": h.tokens.RemainingValidity().Milliseconds(),
	})
}
