// Package sportsdata is the REST client for the upstream live-sports
// provider: schedules, box scores, and live box scores. Grounded on
// pkg/polymarket/sports/mathshard.go's client shape (baseURL + http.Client +
// simple JSON decode), generalized with an API-key header and the
// rate-limited retry pattern from pkg/polymarket/gamma/client.go.
package sportsdata

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

// Game is one scheduled or in-progress game.
type Game struct {
	ID            string    `json:"id"`
	HomeTeamID    string    `json:"home_team_id"`
	AwayTeamID    string    `json:"away_team_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        string    `json:"status"`
}

// BoxScore is a scoreboard snapshot for one game.
type BoxScore struct {
	GameID        string `json:"game_id"`
	Status        string `json:"status"`
	Period        int    `json:"period"`
	TimeRemaining string `json:"time_remaining"`
	HomeScore     int    `json:"home_score"`
	AwayScore     int    `json:"away_score"`
}

// Page is a cursor-paginated response envelope.
type Page[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor"`
}

// Client is a REST client for the upstream sports provider.
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

// GetGames calls get_games(dates, team_ids, cursor, per_page<=100).
func (c *Client) GetGames(ctx context.Context, dates, teamIDs []string, cursor string, perPage int) (*Page[Game], error) {
	params := url.Values{}
	if len(dates) > 0 {
		params.Set("dates", strings.Join(dates, ","))
	}
	if len(teamIDs) > 0 {
		params.Set("team_ids", strings.Join(teamIDs, ","))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if perPage > 0 {
		if perPage > 100 {
			perPage = 100
		}
		params.Set("per_page", strconv.Itoa(perPage))
	}
	var page Page[Game]
	if err := c.get(ctx, "/games", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetGame calls get_game(id).
func (c *Client) GetGame(ctx context.Context, id string) (*Game, error) {
	var game Game
	if err := c.get(ctx, "/games/"+id, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// GetBoxScores calls get_box_scores(game_ids|date).
func (c *Client) GetBoxScores(ctx context.Context, gameIDs []string, date string) ([]BoxScore, error) {
	params := url.Values{}
	if len(gameIDs) > 0 {
		params.Set("game_ids", strings.Join(gameIDs, ","))
	}
	if date != "" {
		params.Set("date", date)
	}
	var scores []BoxScore
	if err := c.get(ctx, "/box_scores", params, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// GetBoxScoresLive calls get_box_scores_live().
func (c *Client) GetBoxScoresLive(ctx context.Context) ([]BoxScore, error) {
	var scores []BoxScore
	if err := c.get(ctx, "/box_scores/live", nil, &scores); err != nil {
		return nil, err
	}
	return scores, nil
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
			return model.NewError(model.CodeRateLimited, "sports provider rate limit: %v", ctx.Err())
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
		return model.NewError(model.CodeAuthFailure, "sports provider returned 401")
	case http.StatusNotFound:
		return model.NewError(model.CodeNotFound, "sports provider returned 404 for %s", path)
	case http.StatusTooManyRequests:
		return model.NewError(model.CodeRateLimited, "sports provider returned 429 after one retry")
	default:
		body, _ := io.ReadAll(resp.Body)
		return model.NewError(model.CodeUpstreamFailure, "sports provider returned %d: %s", resp.StatusCode, string(body))
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
