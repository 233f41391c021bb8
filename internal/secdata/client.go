package secdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// Default configuration values. The SEC fair-access policy requires a
// descriptive User-Agent and caps clients at 10 requests per second.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10.0
	DefaultUserAgent = "aperture-lbo-screener/1.0 contact@example.com"

	defaultTickersURL = "https://www.sec.gov/files/company_tickers.json"
	defaultFactsBase  = "https://data.sec.gov"
)

// Client fetches company facts from the SEC EDGAR data API.
type Client struct {
	client     *http.Client
	userAgent  string
	limiter    *rate.Limiter
	tickersURL string
	factsBase  string

	// cikCache maps upper-case ticker to zero-padded CIK, loaded
	// lazily from the SEC registry on first lookup.
	cikCache map[string]string
	cikMu    sync.RWMutex
}

// ClientOption configures Client.
type ClientOption func(*Client)

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

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithTickersURL overrides the company registry endpoint.
func WithTickersURL(url string) ClientOption {
	return func(c *Client) {
		c.tickersURL = url
	}
}

// WithFactsBaseURL overrides the data API host.
func WithFactsBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.factsBase = strings.TrimRight(base, "/")
	}
}

// NewClient creates an EDGAR client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client:     &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		tickersURL: defaultTickersURL,
		factsBase:  defaultFactsBase,
		cikCache:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Statements implements Source.
func (c *Client) Statements(ctx context.Context, ticker string) (*domain.CompanyStatements, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	cik, err := c.lookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.factsBase, cik)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("company facts for %s: %w", ticker, err)
	}

	var doc companyFactsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal company facts for %s: %w", ticker, err)
	}

	statements, err := assembleStatements(ticker, cik, doc.Facts["us-gaap"])
	if err != nil {
		return nil, err
	}
	return statements, nil
}

// lookupCIK resolves a ticker to its zero-padded CIK, loading the SEC
// registry on first use.
func (c *Client) lookupCIK(ctx context.Context, ticker string) (string, error) {
	c.cikMu.RLock()
	cik, ok := c.cikCache[ticker]
	loaded := len(c.cikCache) > 0
	c.cikMu.RUnlock()
	if ok {
		return cik, nil
	}
	if loaded {
		return "", fmt.Errorf("ticker %s not in SEC registry: %w", ticker, ErrUnavailable)
	}

	c.cikMu.Lock()
	defer c.cikMu.Unlock()

	// Another goroutine may have loaded the registry meanwhile.
	if len(c.cikCache) == 0 {
		if err := c.loadCIKTable(ctx); err != nil {
			return "", err
		}
	}
	if cik, ok := c.cikCache[ticker]; ok {
		return cik, nil
	}
	return "", fmt.Errorf("ticker %s not in SEC registry: %w", ticker, ErrUnavailable)
}

// loadCIKTable fetches company_tickers.json. The payload is an object
// keyed by row number: {"0": {"cik_str": 320193, "ticker": "AAPL", ...}}.
func (c *Client) loadCIKTable(ctx context.Context) error {
	body, err := c.get(ctx, c.tickersURL)
	if err != nil {
		return fmt.Errorf("fetch SEC registry: %w", err)
	}

	type tickerEntry struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}

	var entries map[string]tickerEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("parse SEC registry: %w", err)
	}

	for _, entry := range entries {
		c.cikCache[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
	}
	return nil
}

// get performs one rate-limited request.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
