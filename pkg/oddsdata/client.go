// Package oddsdata is the REST client for the upstream odds provider:
// get_odds(game_ids|dates, sportsbooks). Same client shape as pkg/sportsdata
// (they are, per spec.md §6, the same vendor's two endpoint families).
package oddsdata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

const (
	defaultRateLimit = 5.0
	defaultBurst     = 5
)

// OddsRecord is one (game, vendor) record with direct moneyline/spread/total
// fields.
type OddsRecord struct {
	GameID         string   `json:"game_id"`
	Vendor         string   `json:"sportsbook"`
	HomeMoneyline  *int     `json:"home_moneyline"`
	AwayMoneyline  *int     `json:"away_moneyline"`
	SpreadValue    *float64 `json:"spread_value"`
	SpreadHomeOdds *int     `json:"spread_home_odds"`
	SpreadAwayOdds *int     `json:"spread_away_odds"`
	TotalValue     *float64 `json:"total_value"`
	OverOdds       *int     `json:"over_odds"`
	UnderOdds      *int     `json:"under_odds"`
}

// Client is a REST client for the upstream odds provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) ClientOption { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.httpClient = hc } }

// NewClient builds a Client authenticated with an unprefixed API key header.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOdds calls get_odds(game_ids|dates, sportsbooks).
func (c *Client) GetOdds(ctx context.Context, gameIDs, dates, sportsbooks []string) ([]OddsRecord, error) {
	params := url.Values{}
	if len(gameIDs) > 0 {
		params.Set("game_ids", strings.Join(gameIDs, ","))
	}
	if len(dates) > 0 {
		params.Set("dates", strings.Join(dates, ","))
	}
	if len(sportsbooks) > 0 {
		params.Set("sportsbooks", strings.Join(sportsbooks, ","))
	}
	var records []OddsRecord
	if err := c.get(ctx, "/odds", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.NewError(model.CodeRateLimited, "rate limiter: %v", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.NewError(model.CodeInternal, "create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewError(model.CodeUpstreamFailure, "http request: %v", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		delay := retryAfterDelay(resp.Header.Get("Retry-After"))
		resp.Body.Close()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.NewError(model.CodeRateLimited, "odds provider rate limit: %v", ctx.Err())
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return model.NewError(model.CodeUpstreamFailure, "http request (retry): %v", err)
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return model.NewError(model.CodeAuthFailure, "odds provider returned 401")
	case http.StatusNotFound:
		return model.NewError(model.CodeNotFound, "odds provider returned 404 for %s", path)
	case http.StatusTooManyRequests:
		return model.NewError(model.CodeRateLimited, "odds provider returned 429 after one retry")
	default:
		body, _ := io.ReadAll(resp.Body)
		return model.NewError(model.CodeUpstreamFailure, "odds provider returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return model.NewError(model.CodeUpstreamFailure, "decode response: %v", err)
	}
	return nil
}

// defaultRetryDelay is used when a 429 response carries no Retry-After
// header.
const defaultRetryDelay = 2 * time.Second

// retryAfterDelay parses a Retry-After header value (seconds, per RFC
// 7231 — the provider does not send the HTTP-date form), falling back to
// defaultRetryDelay when absent or unparseable.
func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return defaultRetryDelay
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryDelay
	}
	return time.Duration(seconds) * time.Second
}
