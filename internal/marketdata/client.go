package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultUserAgent  = "aperture-lbo-screener/1.0"
)

// Client fetches snapshots from the quote provider's JSON API.
type Client struct {
	baseURL    string
	client     *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	clock      func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithClock overrides the time source used for FetchedAt stamps.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a quote provider client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		clock:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// quoteDocument is the raw provider payload. Numeric fields are pointers
// so an omitted field stays distinguishable from zero.
type quoteDocument struct {
	Ticker          string   `json:"ticker"`
	CompanyName     string   `json:"company_name"`
	Sector          string   `json:"sector"`
	Industry        string   `json:"industry"`
	MarketCap       *float64 `json:"market_cap"`
	EnterpriseValue *float64 `json:"enterprise_value"`
	TotalDebt       *float64 `json:"total_debt"`
	TotalCash       *float64 `json:"total_cash"`
	EBITDA          *float64 `json:"ebitda"`
}

// Snapshot implements Source. A 404 from the provider, or a payload
// carrying neither market cap nor enterprise value, maps to
// ErrUnavailable.
func (c *Client) Snapshot(ctx context.Context, ticker string) (*domain.MarketSnapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	endpoint := fmt.Sprintf("%s/v1/quote/%s", c.baseURL, url.PathEscape(ticker))

	body, err := c.get(ctx, endpoint, ticker)
	if err != nil {
		return nil, err
	}

	var doc quoteDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal quote for %s: %w", ticker, err)
	}

	if doc.MarketCap == nil && doc.EnterpriseValue == nil {
		return nil, fmt.Errorf("quote for %s carries no valuation anchor: %w", ticker, ErrUnavailable)
	}

	return doc.toSnapshot(ticker, c.clock().UnixMilli()), nil
}

// toSnapshot converts the raw payload into the domain snapshot.
func (d *quoteDocument) toSnapshot(ticker string, fetchedAt int64) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Ticker:          ticker,
		CompanyName:     d.CompanyName,
		Sector:          d.Sector,
		Industry:        d.Industry,
		MarketCap:       domain.FigureFromPtr(d.MarketCap),
		EnterpriseValue: domain.FigureFromPtr(d.EnterpriseValue),
		TotalDebt:       domain.FigureFromPtr(d.TotalDebt),
		TotalCash:       domain.FigureFromPtr(d.TotalCash),
		EBITDA:          domain.FigureFromPtr(d.EBITDA),
		FetchedAt:       fetchedAt,
	}
}

// get performs the request with retries and exponential backoff.
// Transport errors, 429 and 5xx are retried; 404 maps to ErrUnavailable
// immediately and other 4xx fail fast.
func (c *Client) get(ctx context.Context, endpoint, ticker string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("quote for %s: %w", ticker, ErrUnavailable)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		default:
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
