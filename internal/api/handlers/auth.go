package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// AuthHandler exposes the token lifecycle.
type AuthHandler struct {
	tokens *jquants.TokenManager
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokens *jquants.TokenManager, log *logger.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: log}
}

// RefreshRequest optionally overrides the configured long-lived credential.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh forces a new ID token exchange.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.tokens.ForceRefresh(r.Context(), req.RefreshToken); err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "refreshed",
		"expires_in_ms": h.tokens.RemainingValidity().Milliseconds(),
	})
}
