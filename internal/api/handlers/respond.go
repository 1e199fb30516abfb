package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondUpstreamError maps the upstream error taxonomy onto proxy statuses:
// credential failures 401, missing data 404, caller mistakes the upstream
// flagged 400, anything else 502.
func respondUpstreamError(w http.ResponseWriter, log *logger.Logger, err error) {
	var authErr *jquants.AuthError
	var upErr *jquants.UpstreamError

	switch {
	case errors.As(err, &authErr):
		log.WithError(err).Error("Upstream authentication failed")
		respondError(w, http.StatusUnauthorized, "Upstream authentication failed: "+authErr.Detail)

	case errors.Is(err, jquants.ErrNoData):
		respondError(w, http.StatusNotFound, "No data for the requested parameters")

	case errors.As(err, &upErr):
		log.WithError(err).Warn("Upstream request rejected")
		switch upErr.Status {
		case http.StatusBadRequest:
			respondError(w, http.StatusBadRequest, "Upstream rejected the request parameters")
		case http.StatusNotFound:
			respondError(w, http.StatusNotFound, "No data for the requested parameters")
		default:
			respondError(w, http.StatusBadGateway, "Upstream request failed")
		}

	default:
		log.WithError(err).Error("Upstream request failed")
		respondError(w, http.StatusBadGateway, "Upstream request failed")
	}
}
