package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/hayasaka/jqproxy/internal/api/handlers"
	"github.com/hayasaka/jqproxy/pkg/config"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// Deps bundles the handlers the router mounts.
type Deps struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Data   *handlers.DataHandler
	Screen *handlers.ScreenHandler
}

// NewRouter creates and configures the HTTP router.
// SSOT: routing lives in this function only.
func NewRouter(cfg *config.Config, deps Deps, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check stays unauthenticated for platform probes.
	r.HandleFunc("/health", deps.Health.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(bearerAuthMiddleware(cfg.ProxyBearerToken, log))

	api.HandleFunc("/auth/refresh", deps.Auth.Refresh).Methods("POST")

	api.HandleFunc("/prices/daily", deps.Data.DailyQuotes).Methods("GET")
	api.HandleFunc("/listed/info", deps.Data.ListedInfo).Methods("GET")
	api.HandleFunc("/fins/statements", deps.Data.Statements).Methods("GET")
	api.HandleFunc("/markets/weekly_margin_interest", deps.Data.WeeklyMargin).Methods("GET")
	api.HandleFunc("/markets/daily_margin_interest", deps.Data.DailyMargin).Methods("GET")
	api.HandleFunc("/markets/trading_calendar", deps.Data.TradingCalendar).Methods("GET")

	api.HandleFunc("/screen", deps.Screen.Screen).Methods("GET")
	api.HandleFunc("/screen/snapshot", deps.Screen.Snapshot).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// bearerAuthMiddleware guards the /api subtree with the proxy's own bearer
// secret. The whole point of the proxy is that upstream credentials never
// reach the front end; this is the front end's credential instead.
func bearerAuthMiddleware(secret string, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				log.WithField("path", r.URL.Path).Warn("Rejected unauthorized request")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Unauthorized",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
