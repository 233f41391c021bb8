// Package stub provides a deterministic in-memory market data source
// for tests and offline runs.
package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/marketdata"
)

// Source implements marketdata.Source from a fixed snapshot set.
// Unknown tickers report marketdata.ErrUnavailable.
type Source struct {
	mu        sync.Mutex
	snapshots map[string]domain.MarketSnapshot
	errs      map[string]error
	calls     map[string]int
}

// New creates an empty stub source.
func New() *Source {
	return &Source{
		snapshots: make(map[string]domain.MarketSnapshot),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

// AddSnapshot registers a snapshot under its ticker.
func (s *Source) AddSnapshot(snap domain.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[strings.ToUpper(snap.Ticker)] = snap
}

// FailWith makes lookups for ticker return err.
func (s *Source) FailWith(ticker string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[strings.ToUpper(ticker)] = err
}

// Calls reports how many lookups ticker has received.
func (s *Source) Calls(ticker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[strings.ToUpper(ticker)]
}

// Snapshot implements marketdata.Source.
func (s *Source) Snapshot(_ context.Context, ticker string) (*domain.MarketSnapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[ticker]++

	if err, ok := s.errs[ticker]; ok {
		return nil, err
	}
	snap, ok := s.snapshots[ticker]
	if !ok {
		return nil, fmt.Errorf("quote for %s: %w", ticker, marketdata.ErrUnavailable)
	}
	out := snap
	return &out, nil
}
