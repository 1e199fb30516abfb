package jquants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hayasaka/jqproxy/internal/cache"
	"github.com/hayasaka/jqproxy/pkg/config"
	"github.com/hayasaka/jqproxy/pkg/httputil"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// Client issues authenticated calls against the J-Quants data endpoints.
// Responses are cached write-through with per-endpoint TTLs; collection
// endpoints are drained page by page up to a safety ceiling.
// SSOT: J-Quants data calls happen here only.
type Client struct {
	cfg        config.JQuantsConfig
	cacheCfg   config.CacheConfig
	httpClient *httputil.Client
	tokens     *TokenManager
	respCache  *cache.Cache // nil disables caching
	logger     *logger.Logger

	// Smooths the request rate while draining pagination_key chains.
	pageLimiter *rate.Limiter
}

// NewClient creates a new data client.
func NewClient(cfg config.JQuantsConfig, cacheCfg config.CacheConfig, httpClient *httputil.Client, tokens *TokenManager, respCache *cache.Cache, log *logger.Logger) *Client {
	pageRate := cfg.PageRateLimit
	if pageRate <= 0 {
		pageRate = 5.0
	}

	return &Client{
		cfg:         cfg,
		cacheCfg:    cacheCfg,
		httpClient:  httpClient,
		tokens:      tokens,
		respCache:   respCache,
		logger:      log,
		pageLimiter: rate.NewLimiter(rate.Limit(pageRate), 1),
	}
}

// Tokens exposes the token manager for the auth endpoints and health checks.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// Get fetches one endpoint response body, serving from cache when fresh.
// Non-2xx statuses after retries become UpstreamError.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	key := cache.Key(http.MethodGet, path, params)
	if c.respCache != nil {
		if body, found := c.respCache.Get(ctx, key); found {
			return body, nil
		}
	}

	token, err := c.tokens.EnsureIDToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := c.httpClient.Get(ctx, endpoint, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: truncateBody(body)}
	}

	if c.respCache != nil {
		c.respCache.Set(ctx, key, body, c.endpointTTL(path))
	}

	return body, nil
}

// GetJSON fetches one endpoint response decoded into a generic object.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values) (map[string]interface{}, error) {
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	return result, nil
}

// GetList fetches a collection endpoint, concatenating pages by following
// pagination_key until it disappears or the page ceiling is reached.
// listKey names the array field in each page (e.g. "daily_quotes").
func (c *Client) GetList(ctx context.Context, path string, params url.Values, listKey string) ([]map[string]interface{}, error) {
	maxPages := c.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}

	pageParams := url.Values{}
	for k, v := range params {
		pageParams[k] = v
	}

	var items []map[string]interface{}
	for page := 0; page < maxPages; page++ {
		if page > 0 {
			if err := c.pageLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := c.GetJSON(ctx, path, pageParams)
		if err != nil {
			return nil, err
		}

		rawList, ok := result[listKey].([]interface{})
		if !ok && result[listKey] != nil {
			return nil, fmt.Errorf("unexpected shape for %q in %s response", listKey, path)
		}
		for _, raw := range rawList {
			if rec, ok := raw.(map[string]interface{}); ok {
				items = append(items, rec)
			}
		}

		next, _ := result["pagination_key"].(string)
		if next == "" {
			return items, nil
		}
		pageParams.Set("pagination_key", next)
	}

	c.logger.WithFields(map[string]interface{}{
		"path":      path,
		"max_pages": maxPages,
		"items":     len(items),
	}).Warn("Pagination ceiling reached, returning partial collection")

	return items, nil
}

// endpointTTL maps an endpoint path to its cache TTL class. TTL is a
// property of the endpoint, not of individual records.
func (c *Client) endpointTTL(path string) time.Duration {
	switch {
	case strings.Contains(path, "/listed/info"), strings.Contains(path, "/markets/trading_calendar"):
		return c.cacheCfg.ReferenceTTL
	case strings.Contains(path, "/prices/daily_quotes"):
		return c.cacheCfg.PricesTTL
	default:
		return c.cacheCfg.StatementsTTL
	}
}
