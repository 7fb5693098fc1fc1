package clob

import (
	"bytes"
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

// Client is a public CLOB API client. It only uses unauthenticated
// endpoints: prices, midpoints, and books.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
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

// NewClient creates a new public CLOB client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetPrice fetches the current price for one token and side.
func (c *Client) GetPrice(ctx context.Context, tokenID string, side Side) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)
	params.Set("side", string(side))

	var result struct {
		Price string `json:"price"`
	}
	if err := c.get(ctx, "/price", params, &result); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(result.Price, 64)
}

// GetMidpoint fetches the midpoint price for a token.
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var result struct {
		Mid string `json:"mid"`
	}
	if err := c.get(ctx, "/midpoint", params, &result); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(result.Mid, 64)
}

// GetBook fetches the order book for a token.
func (c *Client) GetBook(ctx context.Context, tokenID string) (*BookSummary, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var book BookSummary
	if err := c.get(ctx, "/book", params, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// BatchPrices posts a batch of token ids to the /prices endpoint and
// returns a tokenID -> price map for the requested side. Tokens the API
// does not return, or returns unparseable prices for, are simply absent
// from the result.
func (c *Client) BatchPrices(ctx context.Context, tokenIDs []string, side Side) (map[string]float64, error) {
	if len(tokenIDs) == 0 {
		return map[string]float64{}, nil
	}

	reqs := make([]priceRequest, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		reqs = append(reqs, priceRequest{TokenID: id, Side: side})
	}

	// Response shape: {tokenID: {"BUY": "0.55", "SELL": "0.56"}}
	var raw map[string]map[string]string
	if err := c.post(ctx, "/prices", reqs, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(raw))
	for tokenID, sides := range raw {
		s, ok := sides[string(side)]
		if !ok {
			continue
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		prices[tokenID] = p
	}

	return prices, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

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

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
