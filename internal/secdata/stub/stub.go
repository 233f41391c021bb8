// Package stub provides a deterministic in-memory SEC data source for
// tests and offline runs.
package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/secdata"
)

// Source implements secdata.Source from a fixed statement set. Unknown
// tickers report secdata.ErrUnavailable.
type Source struct {
	mu         sync.Mutex
	statements map[string]*domain.CompanyStatements
	errs       map[string]error
	calls      map[string]int
}

// New creates an empty stub source.
func New() *Source {
	return &Source{
		statements: make(map[string]*domain.CompanyStatements),
		errs:       make(map[string]error),
		calls:      make(map[string]int),
	}
}

// AddStatements registers a statement set under its ticker.
func (s *Source) AddStatements(statements *domain.CompanyStatements) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements[strings.ToUpper(statements.Ticker)] = statements
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

// Statements implements secdata.Source.
func (s *Source) Statements(_ context.Context, ticker string) (*domain.CompanyStatements, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[ticker]++

	if err, ok := s.errs[ticker]; ok {
		return nil, err
	}
	statements, ok := s.statements[ticker]
	if !ok {
		return nil, fmt.Errorf("statements for %s: %w", ticker, secdata.ErrUnavailable)
	}
	return statements, nil
}
