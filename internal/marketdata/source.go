// Package marketdata fetches per-ticker market snapshots from the quote
// provider over HTTP, with an optional WebSocket stream for live updates
// and a caching wrapper shared with the SEC connector.
package marketdata

import (
	"context"
	"errors"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// ErrUnavailable marks a ticker the provider cannot serve: unknown
// symbol, or a payload missing both market cap and enterprise value.
// Callers treat it as an absence signal, not a fault.
var ErrUnavailable = errors.New("market data unavailable")

// CacheSource is the cache key segment for this connector.
const CacheSource = "market"

// Source fetches the current market snapshot for one ticker.
type Source interface {
	Snapshot(ctx context.Context, ticker string) (*domain.MarketSnapshot, error)
}
