package jquants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hayasaka/jqproxy/pkg/config"
	"github.com/hayasaka/jqproxy/pkg/httputil"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// TokenManager owns the two-stage J-Quants credential lifecycle:
// refresh token (long-lived) -> ID token (short-lived bearer).
//
// A configured refresh token is assumed valid until rejected. When it is
// rejected or absent and mail/password bootstrap credentials are configured,
// a fresh refresh token is requested via /token/auth_user and the ID-token
// exchange is retried once.
//
// Credential state lives only in this struct for the process lifetime; a
// cold start always re-derives it.
// SSOT: token endpoints are called here only.
type TokenManager struct {
	cfg        config.JQuantsConfig
	httpClient *httputil.Client
	logger     *logger.Logger

	mu           sync.RWMutex
	refreshToken string
	idToken      string
	idExpiry     time.Time

	// Concurrent callers share a single in-flight refresh per stage.
	sf singleflight.Group

	now func() time.Time
}

// NewTokenManager creates a token manager seeded with the configured
// refresh token (possibly empty).
func NewTokenManager(cfg config.JQuantsConfig, httpClient *httputil.Client, log *logger.Logger) *TokenManager {
	return &TokenManager{
		cfg:          cfg,
		httpClient:   httpClient,
		logger:       log,
		refreshToken: cfg.RefreshToken,
		now:          time.Now,
	}
}

// EnsureIDToken returns a session token valid for at least the configured
// safety margin, refreshing it if needed. All concurrent callers of an
// in-flight refresh receive the same token.
func (m *TokenManager) EnsureIDToken(ctx context.Context) (string, error) {
	if tok, ok := m.cachedIDToken(); ok {
		return tok, nil
	}

	v, err, _ := m.sf.Do("id_token", func() (interface{}, error) {
		// Another caller may have refreshed while we queued.
		if tok, ok := m.cachedIDToken(); ok {
			return tok, nil
		}
		return m.refreshIDToken(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// ForceRefresh discards the cached ID token and performs a fresh exchange.
// A non-empty override replaces the stored refresh token first.
func (m *TokenManager) ForceRefresh(ctx context.Context, overrideRefreshToken string) (string, error) {
	m.mu.Lock()
	if overrideRefreshToken != "" {
		m.refreshToken = overrideRefreshToken
	}
	m.idToken = ""
	m.idExpiry = time.Time{}
	m.mu.Unlock()

	return m.EnsureIDToken(ctx)
}

// RemainingValidity returns how long the cached ID token stays valid.
// Zero when no token is cached or it has expired.
func (m *TokenManager) RemainingValidity() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.idToken == "" {
		return 0
	}
	remaining := m.idExpiry.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cachedIDToken returns the token if it stays valid past the safety margin.
func (m *TokenManager) cachedIDToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.idToken != "" && m.idExpiry.Sub(m.now()) > m.cfg.TokenSafetyMargin {
		return m.idToken, true
	}
	return "", false
}

// refreshIDToken runs the credential fallback chain:
// exchange stored refresh token; on failure, bootstrap a new refresh token
// from mail/password and retry the exchange once.
func (m *TokenManager) refreshIDToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	refreshToken := m.refreshToken
	m.mu.RUnlock()

	var exchangeErr error
	if refreshToken != "" {
		tok, err := m.exchangeIDToken(ctx, refreshToken)
		if err == nil {
			m.storeIDToken(tok)
			return tok, nil
		}
		exchangeErr = err
		m.logger.WithError(err).Warn("Refresh token exchange failed, trying bootstrap")
	}

	if m.cfg.MailAddress == "" || m.cfg.Password == "" {
		detail := "no refresh token configured and no bootstrap credentials"
		if exchangeErr != nil {
			detail = "refresh token rejected and no bootstrap credentials"
		}
		return "", &AuthError{Detail: detail, Err: exchangeErr}
	}

	newRefresh, err := m.bootstrapRefreshToken(ctx)
	if err != nil {
		return "", &AuthError{Detail: "bootstrap flow failed", Err: err}
	}

	tok, err := m.exchangeIDToken(ctx, newRefresh)
	if err != nil {
		return "", &AuthError{Detail: "exchange failed after bootstrap", Err: err}
	}

	m.storeIDToken(tok)
	return tok, nil
}

func (m *TokenManager) storeIDToken(tok string) {
	m.mu.Lock()
	m.idToken = tok
	m.idExpiry = m.now().Add(m.cfg.IDTokenTTL)
	m.mu.Unlock()

	m.logger.WithFields(map[string]interface{}{
		"expires_in": m.cfg.IDTokenTTL,
	}).Info("ID token refreshed")
}

// bootstrapRefreshToken requests a new refresh token via /token/auth_user.
// Concurrent bootstrap attempts share a single upstream call, independently
// of the ID-token dedup.
func (m *TokenManager) bootstrapRefreshToken(ctx context.Context) (string, error) {
	v, err, _ := m.sf.Do("refresh_token", func() (interface{}, error) {
		body := map[string]string{
			"mailaddress": m.cfg.MailAddress,
			"password":    m.cfg.Password,
		}

		resp, err := m.httpClient.PostJSON(ctx, m.cfg.BaseURL+"/token/auth_user", body)
		if err != nil {
			return nil, fmt.Errorf("auth_user request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != 200 {
			return nil, &UpstreamError{Status: resp.StatusCode, Body: truncateBody(respBody)}
		}

		var result struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("decode auth_user response: %w", err)
		}
		if result.RefreshToken == "" {
			return nil, fmt.Errorf("auth_user response missing refreshToken")
		}

		m.mu.Lock()
		m.refreshToken = result.RefreshToken
		m.mu.Unlock()

		m.logger.Info("Refresh token bootstrapped from account credentials")
		return result.RefreshToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// exchangeIDToken trades a refresh token for an ID token.
func (m *TokenManager) exchangeIDToken(ctx context.Context, refreshToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/token/auth_refresh?refreshtoken=%s",
		m.cfg.BaseURL, url.QueryEscape(refreshToken))

	resp, err := m.httpClient.Post(ctx, endpoint, "application/json", nil)
	if err != nil {
		return "", fmt.Errorf("auth_refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: truncateBody(respBody)}
	}

	var result struct {
		IDToken string `json:"idToken"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode auth_refresh response: %w", err)
	}
	if result.IDToken == "" {
		return "", fmt.Errorf("auth_refresh response missing idToken")
	}

	return result.IDToken, nil
}
