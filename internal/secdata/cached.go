package secdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/cache"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/observability"
)

// CachedSource wraps a Source with the shared lookup cache. EDGAR
// statement sets change only when a company files, so cached entries
// stay valid for the whole TTL; unavailable tickers are cached as
// negatives so they are probed at most once per window.
type CachedSource struct {
	source  Source
	cache   cache.Cache
	ttl     time.Duration
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

// NewCachedSource wraps source with c. Entries live for ttl.
func NewCachedSource(source Source, c cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: c, ttl: ttl}
}

// WithLogger attaches a logger for cache faults.
func (cs *CachedSource) WithLogger(logger logrus.FieldLogger) *CachedSource {
	cs.logger = logger
	return cs
}

// WithMetrics attaches connector and cache instrumentation.
func (cs *CachedSource) WithMetrics(m *observability.Metrics) *CachedSource {
	cs.metrics = m
	return cs
}

// Statements implements Source.
func (cs *CachedSource) Statements(ctx context.Context, ticker string) (*domain.CompanyStatements, error) {
	key := cache.Key(CacheSource, ticker)

	payload, found, err := cs.cache.Get(ctx, key)
	if err != nil {
		cs.warn(ticker, "read", err)
	}
	if found && err == nil {
		if payload == nil {
			cs.metrics.RecordCacheEvent("negative_hit")
			return nil, fmt.Errorf("statements for %s (cached): %w", ticker, ErrUnavailable)
		}
		var statements domain.CompanyStatements
		if err := json.Unmarshal(payload, &statements); err == nil {
			cs.metrics.RecordCacheEvent("hit")
			return &statements, nil
		}
		cs.warn(ticker, "decode", err)
	}
	cs.metrics.RecordCacheEvent("miss")

	start := time.Now()
	statements, err := cs.source.Statements(ctx, ticker)
	elapsed := time.Since(start).Seconds()

	switch {
	case errors.Is(err, ErrUnavailable):
		cs.metrics.RecordConnectorRequest(CacheSource, "unavailable", elapsed)
		if setErr := cs.cache.Set(ctx, key, nil, cs.ttl); setErr != nil {
			cs.warn(ticker, "write", setErr)
		}
		return nil, err
	case err != nil:
		cs.metrics.RecordConnectorRequest(CacheSource, "error", elapsed)
		return nil, err
	}

	cs.metrics.RecordConnectorRequest(CacheSource, "ok", elapsed)

	payload, marshalErr := json.Marshal(statements)
	if marshalErr != nil {
		cs.warn(ticker, "encode", marshalErr)
		return statements, nil
	}
	if setErr := cs.cache.Set(ctx, key, payload, cs.ttl); setErr != nil {
		cs.warn(ticker, "write", setErr)
	}
	return statements, nil
}

func (cs *CachedSource) warn(ticker, op string, err error) {
	if cs.logger == nil {
		return
	}
	cs.logger.WithFields(logrus.Fields{
		"source": CacheSource,
		"ticker": ticker,
		"op":     op,
	}).WithError(err).Warn("Cache operation failed")
}
