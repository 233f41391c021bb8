package marketdata

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

// CachedSource wraps a Source with the shared lookup cache. Successful
// snapshots and ErrUnavailable outcomes are both cached, so within a TTL
// window a dead ticker is fetched at most once. Other errors pass
// through uncached.
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

// Snapshot implements Source.
func (cs *CachedSource) Snapshot(ctx context.Context, ticker string) (*domain.MarketSnapshot, error) {
	key := cache.Key(CacheSource, ticker)

	payload, found, err := cs.cache.Get(ctx, key)
	if err != nil {
		// Cache faults degrade to a direct fetch.
		cs.warn(ticker, "read", err)
	}
	if found && err == nil {
		if payload == nil {
			cs.metrics.RecordCacheEvent("negative_hit")
			return nil, fmt.Errorf("quote for %s (cached): %w", ticker, ErrUnavailable)
		}
		var snap domain.MarketSnapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			cs.metrics.RecordCacheEvent("hit")
			return &snap, nil
		}
		cs.warn(ticker, "decode", err)
	}
	cs.metrics.RecordCacheEvent("miss")

	start := time.Now()
	snap, err := cs.source.Snapshot(ctx, ticker)
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

	payload, marshalErr := json.Marshal(snap)
	if marshalErr != nil {
		cs.warn(ticker, "encode", marshalErr)
		return snap, nil
	}
	if setErr := cs.cache.Set(ctx, key, payload, cs.ttl); setErr != nil {
		cs.warn(ticker, "write", setErr)
	}
	return snap, nil
}

// Store primes the cache with an externally observed snapshot, such as a
// quote stream update. The entry replaces whatever the key held, so a
// streamed quote also clears a cached negative.
func (cs *CachedSource) Store(ctx context.Context, snap domain.MarketSnapshot) error {
	payload, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", snap.Ticker, err)
	}
	if err := cs.cache.Set(ctx, cache.Key(CacheSource, snap.Ticker), payload, cs.ttl); err != nil {
		return fmt.Errorf("cache snapshot for %s: %w", snap.Ticker, err)
	}
	cs.metrics.RecordCacheEvent("primed")
	return nil
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
