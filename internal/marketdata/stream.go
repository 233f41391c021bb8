package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// StreamConfig configures stream client behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// StreamClient maintains a WebSocket subscription to the provider's
// quote stream. Subscribed tickers survive reconnects: after a dropped
// connection the client redials with exponential backoff and replays
// the full subscription set.
type StreamClient struct {
	endpoint string
	config   StreamConfig
	clock    func() time.Time

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// tickers is the active subscription set, replayed on reconnect.
	tickers   map[string]struct{}
	tickersMu sync.RWMutex

	updates chan domain.MarketSnapshot

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewStreamClient creates a stream client and connects to the endpoint.
func NewStreamClient(ctx context.Context, endpoint string, config *StreamConfig) (*StreamClient, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	c := &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		clock:    func() time.Time { return time.Now().UTC() },
		tickers:  make(map[string]struct{}),
		updates:  make(chan domain.MarketSnapshot, 1024),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe adds tickers to the subscription set and sends the
// subscribe frame. Already-subscribed tickers are resent harmlessly.
func (c *StreamClient) Subscribe(ctx context.Context, tickers ...string) error {
	if c.closed.Load() {
		return fmt.Errorf("stream client closed")
	}
	if len(tickers) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(tickers))
	c.tickersMu.Lock()
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		c.tickers[t] = struct{}{}
		normalized = append(normalized, t)
	}
	c.tickersMu.Unlock()

	if len(normalized) == 0 {
		return nil
	}
	return c.writeSubscribe(normalized)
}

// Updates returns the quote update channel. It is closed on Close.
func (c *StreamClient) Updates() <-chan domain.MarketSnapshot {
	return c.updates
}

// writeSubscribe sends one subscribe frame for the given tickers.
func (c *StreamClient) writeSubscribe(tickers []string) error {
	req := streamRequest{Op: "subscribe", Tickers: tickers}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the connection and the updates channel.
func (c *StreamClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.updates)
	return nil
}

// readLoop reads messages and dispatches quote updates.
func (c *StreamClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect redials and replays the subscription set.
func (c *StreamClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	c.resubscribe()
}

// resubscribe sends the full active ticker set after a reconnect.
func (c *StreamClient) resubscribe() {
	c.tickersMu.RLock()
	tickers := make([]string, 0, len(c.tickers))
	for t := range c.tickers {
		tickers = append(tickers, t)
	}
	c.tickersMu.RUnlock()

	if len(tickers) == 0 {
		return
	}
	sort.Strings(tickers)
	_ = c.writeSubscribe(tickers)
}

// handleMessage processes one incoming frame.
func (c *StreamClient) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "quote":
		c.handleQuote(msg.Data)
	case "error":
		// Provider-side error frames are informational; the
		// subscription stays up.
	}
}

// handleQuote decodes a quote frame and delivers the snapshot. Payloads
// without a valuation anchor are dropped, matching the HTTP validity
// rule.
func (c *StreamClient) handleQuote(data json.RawMessage) {
	var doc quoteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(doc.Ticker))
	if ticker == "" {
		return
	}
	if doc.MarketCap == nil && doc.EnterpriseValue == nil {
		return
	}

	snap := doc.toSnapshot(ticker, c.clock().UnixMilli())

	// Block until we can send - never drop updates
	select {
	case c.updates <- *snap:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *StreamClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Stream message types

type streamRequest struct {
	Op      string   `json:"op"`
	Tickers []string `json:"tickers"`
}

type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
