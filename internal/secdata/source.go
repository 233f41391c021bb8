// Package secdata assembles multi-year financial statements from SEC
// EDGAR company facts. Tickers resolve to CIKs through the SEC registry,
// annual 10-K facts are deduplicated into newest-first series, and the
// result groups into income, balance and cash flow statements.
package secdata

import (
	"context"
	"errors"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// ErrUnavailable marks a ticker EDGAR cannot serve: not in the SEC
// registry, no usable 10-K facts, or an incomplete statement set.
// Callers treat it as an absence signal, not a fault.
var ErrUnavailable = errors.New("sec data unavailable")

// CacheSource is the cache key segment for this connector.
const CacheSource = "sec"

// Source fetches assembled annual statements for one ticker.
type Source interface {
	Statements(ctx context.Context, ticker string) (*domain.CompanyStatements, error)
}
