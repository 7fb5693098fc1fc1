package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Client is a client for The Odds API. Every request spends quota, so
// the client tracks the remaining-requests header from the last call.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	remaining int
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new Odds API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Limit(1), 2),
		remaining: -1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RemainingQuota returns the requests-remaining value reported by the
// last API response, or -1 if no request has been made yet.
func (c *Client) RemainingQuota() int {
	return c.remaining
}

// ListSports fetches all in-season sports.
func (c *Client) ListSports(ctx context.Context) ([]Sport, error) {
	var sports []Sport
	if err := c.get(ctx, "/sports", nil, &sports); err != nil {
		return nil, err
	}
	return sports, nil
}

// OddsRequest describes one odds fetch.
type OddsRequest struct {
	SportKey   string
	Regions    string // comma separated, e.g. "us,eu"
	Markets    string // comma separated, e.g. "h2h,spreads,totals"
	OddsFormat string // "decimal" or "american"
	Bookmakers string // optional comma-separated book filter
}

// GetOdds fetches odds for one sport across the requested books and
// markets.
func (c *Client) GetOdds(ctx context.Context, req OddsRequest) ([]Game, error) {
	if req.SportKey == "" {
		return nil, fmt.Errorf("sport key required")
	}

	params := url.Values{}
	if req.Regions != "" {
		params.Set("regions", req.Regions)
	} else {
		params.Set("regions", "us")
	}
	if req.Markets != "" {
		params.Set("markets", req.Markets)
	} else {
		params.Set("markets", "h2h")
	}
	if req.OddsFormat != "" {
		params.Set("oddsFormat", req.OddsFormat)
	} else {
		params.Set("oddsFormat", "decimal")
	}
	if req.Bookmakers != "" {
		params.Set("bookmakers", req.Bookmakers)
	}

	var games []Game
	if err := c.get(ctx, "/sports/"+req.SportKey+"/odds", params, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// GetEvents fetches the upcoming game schedule for a sport without
// odds. This costs no quota and is used for date resolution.
func (c *Client) GetEvents(ctx context.Context, sportKey string) ([]Game, error) {
	if sportKey == "" {
		return nil, fmt.Errorf("sport key required")
	}

	var games []Game
	if err := c.get(ctx, "/sports/"+sportKey+"/events", nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if rem := resp.Header.Get("X-Requests-Remaining"); rem != "" {
		if n, err := strconv.Atoi(rem); err == nil {
			c.remaining = n
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
