package jquants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayasaka/jqproxy/pkg/config"
	"github.com/hayasaka/jqproxy/pkg/httputil"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

func testJQuantsConfig(baseURL string) config.JQuantsConfig {
	return config.JQuantsConfig{
		BaseURL:           baseURL,
		RefreshToken:      "configured-refresh",
		IDTokenTTL:        time.Hour,
		TokenSafetyMargin: time.Minute,
		MaxRetries:        0,
		ConcurrencyLimit:  5,
	}
}

func newTestHTTPClient() *httputil.Client {
	return httputil.New(logger.Nop(), httputil.Options{
		MaxRetries:   0,
		InitialDelay: time.Millisecond,
	})
}

func TestEnsureIDToken_CachedTokenNoNetworkCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"idToken": "tok-1"})
	}))
	defer server.Close()

	tm := NewTokenManager(testJQuantsConfig(server.URL), newTestHTTPClient(), logger.Nop())
	ctx := context.Background()

	tok1, err := tm.EnsureIDToken(ctx)
	require.NoError(t, err)
	tok2, err := tm.EnsureIDToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call must be served from cache")
}

func TestEnsureIDToken_ConcurrentCallersShareOneExchange(t *testing.T) {
	var exchanges int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&exchanges, 1)
		time.Sleep(50 * time.Millisecond) // widen the race window
		json.NewEncoder(w).Encode(map[string]string{"idToken": "tok-shared"})
	}))
	defer server.Close()

	tm := NewTokenManager(testJQuantsConfig(server.URL), newTestHTTPClient(), logger.Nop())

	const n = 20
	tokens := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = tm.EnsureIDToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-shared", tokens[i], "all callers must resolve to the same token")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges),
		"N concurrent callers must trigger at most one upstream exchange")
}

func TestEnsureIDToken_ExpiryTriggersRefresh(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"idToken": "tok-" + string(rune('0'+n))})
	}))
	defer server.Close()

	cfg := testJQuantsConfig(server.URL)
	tm := NewTokenManager(cfg, newTestHTTPClient(), logger.Nop())

	now := time.Now()
	tm.now = func() time.Time { return now }

	_, err := tm.EnsureIDToken(context.Background())
	require.NoError(t, err)

	// Inside the safety margin the cached token is no longer handed out.
	now = now.Add(cfg.IDTokenTTL - cfg.TokenSafetyMargin + time.Second)

	_, err = tm.EnsureIDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "expiring token must be refreshed")
}

func TestEnsureIDToken_BootstrapFallback(t *testing.T) {
	var refreshCalls, userCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token/auth_refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		rt := r.URL.Query().Get("refreshtoken")
		if rt != "fresh-refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"The incoming token is invalid"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"idToken": "tok-after-bootstrap"})
	})
	mux.HandleFunc("/token/auth_user", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&userCalls, 1)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["mailaddress"] != "u@example.com" || body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"refreshToken": "fresh-refresh"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testJQuantsConfig(server.URL)
	cfg.RefreshToken = "stale-refresh"
	cfg.MailAddress = "u@example.com"
	cfg.Password = "pw"

	tm := NewTokenManager(cfg, newTestHTTPClient(), logger.Nop())

	tok, err := tm.EnsureIDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-after-bootstrap", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&userCalls), "bootstrap once")
	assert.Equal(t, int32(2), atomic.LoadInt32(&refreshCalls), "rejected exchange + one retry after bootstrap")
}

func TestEnsureIDToken_AllPathsExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer server.Close()

	cfg := testJQuantsConfig(server.URL)
	// No bootstrap credentials configured.
	tm := NewTokenManager(cfg, newTestHTTPClient(), logger.Nop())

	_, err := tm.EnsureIDToken(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %T", err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr), "AuthError must carry the last upstream detail")
	assert.Equal(t, http.StatusUnauthorized, upErr.Status)
}

func TestForceRefresh_WithOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt := r.URL.Query().Get("refreshtoken")
		if rt != "override-refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"idToken": "tok-override"})
	}))
	defer server.Close()

	cfg := testJQuantsConfig(server.URL)
	cfg.RefreshToken = "" // nothing configured
	cfg.MailAddress = ""
	tm := NewTokenManager(cfg, newTestHTTPClient(), logger.Nop())

	tok, err := tm.ForceRefresh(context.Background(), "override-refresh")
	require.NoError(t, err)
	assert.Equal(t, "tok-override", tok)
}

func TestRemainingValidity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"idToken": "tok"})
	}))
	defer server.Close()

	cfg := testJQuantsConfig(server.URL)
	tm := NewTokenManager(cfg, newTestHTTPClient(), logger.Nop())

	assert.Equal(t, time.Duration(0), tm.RemainingValidity(), "no token cached yet")

	_, err := tm.EnsureIDToken(context.Background())
	require.NoError(t, err)

	remaining := tm.RemainingValidity()
	assert.Greater(t, remaining, cfg.IDTokenTTL-time.Minute)
	assert.LessOrEqual(t, remaining, cfg.IDTokenTTL)
}
