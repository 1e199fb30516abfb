package jquants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayasaka/jqproxy/internal/cache"
	"github.com/hayasaka/jqproxy/pkg/config"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		ReferenceTTL:  24 * time.Hour,
		PricesTTL:     10 * time.Minute,
		StatementsTTL: 6 * time.Hour,
	}
}

// newTestClient wires a client against a mock upstream with auth pre-seeded.
func newTestClient(t *testing.T, upstream *httptest.Server, respCache *cache.Cache) *Client {
	t.Helper()

	cfg := testJQuantsConfig(upstream.URL)
	cfg.MaxPages = 5
	cfg.PageRateLimit = 1000 // keep page draining fast in tests

	httpClient := newTestHTTPClient()
	tokens := NewTokenManager(cfg, httpClient, logger.Nop())
	return NewClient(cfg, testCacheConfig(), httpClient, tokens, respCache, logger.Nop())
}

// tokenAwareMux serves /token/auth_refresh plus the given data handlers.
func tokenAwareMux(handlers map[string]http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/token/auth_refresh", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"idToken": "test-id-token"})
	})
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	return mux
}

func TestGet_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/listed/info": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]interface{}{"info": []interface{}{}})
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.Get(context.Background(), "/listed/info", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-id-token", gotAuth)
}

func TestGet_TerminalStatusBecomesUpstreamError(t *testing.T) {
	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/listed/info": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"not found"}`))
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.Get(context.Background(), "/listed/info", nil)
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusNotFound, upErr.Status)
	assert.Contains(t, upErr.Body, "not found")
	assert.False(t, upErr.Retryable())
}

func TestGet_WriteThroughCache(t *testing.T) {
	var dataCalls int32
	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/prices/daily_quotes": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&dataCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{"daily_quotes": []interface{}{}})
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, cache.New(nil))

	params := url.Values{"code": {"7203"}}
	_, err := client.Get(context.Background(), "/prices/daily_quotes", params)
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/prices/daily_quotes", params)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&dataCalls), "second call must hit the cache")

	// Different params must miss.
	_, err = client.Get(context.Background(), "/prices/daily_quotes", url.Values{"code": {"6758"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls))
}

func TestGetList_Pagination(t *testing.T) {
	pages := map[string][]interface{}{
		"": {
			map[string]interface{}{"Code": "72030", "Close": 2500.0},
			map[string]interface{}{"Code": "67580", "Close": 3300.0},
		},
		"page2": {
			map[string]interface{}{"Code": "86970", "Close": 900.0},
		},
	}

	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/prices/daily_quotes": func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Query().Get("pagination_key")
			resp := map[string]interface{}{"daily_quotes": pages[key]}
			if key == "" {
				resp["pagination_key"] = "page2"
			}
			json.NewEncoder(w).Encode(resp)
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	items, err := client.GetList(context.Background(), "/prices/daily_quotes", url.Values{"date": {"2026-08-21"}}, "daily_quotes")
	require.NoError(t, err)
	assert.Len(t, items, 3, "pages must be concatenated")
}

func TestGetList_PageCeiling(t *testing.T) {
	var calls int32
	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/prices/daily_quotes": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			// Pathological upstream: always hands out another page.
			json.NewEncoder(w).Encode(map[string]interface{}{
				"daily_quotes":   []interface{}{map[string]interface{}{"Code": "72030"}},
				"pagination_key": "again",
			})
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	items, err := client.GetList(context.Background(), "/prices/daily_quotes", nil, "daily_quotes")
	require.NoError(t, err, "hitting the ceiling returns partial data, not an error")
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "page ceiling must bound the loop")
	assert.Len(t, items, 5)
}

func TestDailyQuotesByCode_Normalized(t *testing.T) {
	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/prices/daily_quotes": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "7203", r.URL.Query().Get("code"), "code must be canonicalized before the upstream call")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"daily_quotes": []interface{}{
					map[string]interface{}{"Date": "2026-08-21", "Code": "72030", "Close": 2500.0, "TurnoverValue": 1e8},
					map[string]interface{}{"Date": "2026-08-22", "Code": "72030", "Close": "-", "TurnoverValue": 2e8},
				},
			})
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	bars, err := client.DailyQuotesByCode(context.Background(), "72030", "", "")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "7203", bars[0].Code)
	require.NotNil(t, bars[0].Close)
	assert.Equal(t, 2500.0, *bars[0].Close)
	assert.Nil(t, bars[1].Close, "sentinel close must normalize to nil")
}

func TestBusinessDays(t *testing.T) {
	mux := tokenAwareMux(map[string]http.HandlerFunc{
		"/markets/trading_calendar": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"trading_calendar": []interface{}{
					map[string]interface{}{"Date": "2026-08-17", "HolidayDivision": "1"},
					map[string]interface{}{"Date": "2026-08-18", "HolidayDivision": "1"},
					map[string]interface{}{"Date": "2026-08-19", "HolidayDivision": "0"}, // holiday
					map[string]interface{}{"Date": "2026-08-20", "HolidayDivision": "2"}, // half day
					map[string]interface{}{"Date": "2026-08-21", "HolidayDivision": "1"},
				},
			})
		},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	days, err := client.BusinessDays(context.Background(), "2026-08-17", "2026-08-21", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-18", "2026-08-20", "2026-08-21"}, days,
		"most recent 3 business days, half days included, holidays excluded")
}
