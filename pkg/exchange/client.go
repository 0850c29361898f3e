// Package exchange is the REST/socket client for the upstream prediction
// market exchange: status, events, markets, orderbooks, and RSA-PSS request
// signing. Grounded on pkg/polymarket/gamma's functional-options client
// shape, generalized from an unauthenticated public API to a signed one.
package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

const (
	// DefaultBaseURL is the exchange's trade API base URL.
	DefaultBaseURL = "https://trading-api.kalshi.com/trade-api/v2"

	defaultRateLimit = 10.0
	defaultBurst     = 5

	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second
)

// Client is a REST client for the upstream exchange.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	signer     *Signer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the default request rate limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient builds a Client authenticated with signer.
func NewClient(signer *Signer, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		signer:  signer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExchangeStatus calls exchange_status.
func (c *Client) ExchangeStatus(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "/exchange/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListEvents calls list_events.
func (c *Client) ListEvents(ctx context.Context, p ListEventsParams) (*Page[Event], error) {
	params := url.Values{}
	if p.Series != "" {
		params.Set("series_ticker", p.Series)
	}
	if p.Status != "" {
		params.Set("status", string(p.Status))
	}
	if p.WithNestedMarkets {
		params.Set("with_nested_markets", "true")
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Cursor != "" {
		params.Set("cursor", p.Cursor)
	}
	var page Page[Event]
	if err := c.get(ctx, "/events", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetEvent calls get_event.
func (c *Client) GetEvent(ctx context.Context, ticker string, withNestedMarkets bool) (*Event, error) {
	params := url.Values{}
	if withNestedMarkets {
		params.Set("with_nested_markets", "true")
	}
	var event Event
	if err := c.get(ctx, "/events/"+ticker, params, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListMarkets calls list_markets.
func (c *Client) ListMarkets(ctx context.Context, p ListMarketsParams) (*Page[Market], error) {
	params := url.Values{}
	if p.EventTicker != "" {
		params.Set("event_ticker", p.EventTicker)
	}
	if p.Series != "" {
		params.Set("series_ticker", p.Series)
	}
	if p.Status != "" {
		params.Set("status", string(p.Status))
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Cursor != "" {
		params.Set("cursor", p.Cursor)
	}
	var page Page[Market]
	if err := c.get(ctx, "/markets", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMarket calls get_market.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*Market, error) {
	var market Market
	if err := c.get(ctx, "/markets/"+ticker, nil, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// GetMarketOrderbook calls get_market_orderbook. depth is vendor-bounded;
// callers must not assume the response carries more levels than returned.
func (c *Client) GetMarketOrderbook(ctx context.Context, ticker string, depth int) (*Orderbook, error) {
	params := url.Values{}
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}
	var book Orderbook
	if err := c.get(ctx, "/markets/"+ticker+"/orderbook", params, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.NewError(model.CodeRateLimited, "rate limiter: %v", err)
	}

	fullPath := path
	reqURL := c.baseURL + path
	if len(params) > 0 {
		fullPath += "?" + params.Encode()
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.NewError(model.CodeInternal, "create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.signer != nil {
		headers, err := c.signer.AuthHeaders(http.MethodGet, fullPath, nil, time.Now())
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

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
			return model.NewError(model.CodeRateLimited, "exchange rate limit: %v", ctx.Err())
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
		return model.NewError(model.CodeAuthFailure, "exchange returned 401")
	case http.StatusNotFound:
		return model.NewError(model.CodeNotFound, "exchange returned 404 for %s", path)
	case http.StatusTooManyRequests:
		return model.NewError(model.CodeRateLimited, "exchange returned 429 after one retry")
	default:
		body, _ := io.ReadAll(resp.Body)
		return model.NewError(model.CodeUpstreamFailure, "exchange returned %d: %s", resp.StatusCode, string(body))
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
// 7231 — the exchange does not send the HTTP-date form), falling back to
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
