package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// SnapshotFetcher sources profiles from previously persisted snapshots
// instead of the live connectors, so a universe can be re-screened with
// new criteria without network I/O. Tickers with no stored snapshot are
// skipped the same way the live fetcher skips unavailable ones.
type SnapshotFetcher struct {
	snapshots storage.SnapshotStore
	logger    logrus.FieldLogger
}

// NewSnapshotFetcher creates an offline fetcher over the snapshot store.
func NewSnapshotFetcher(snapshots storage.SnapshotStore) *SnapshotFetcher {
	return &SnapshotFetcher{snapshots: snapshots}
}

// Compile-time interface check.
var _ ProfileSource = (*SnapshotFetcher)(nil)

// WithLogger attaches a logger for per-ticker skips and the pass summary.
func (s *SnapshotFetcher) WithLogger(logger logrus.FieldLogger) *SnapshotFetcher {
	s.logger = logger
	return s
}

// Fetch loads the latest stored snapshot per ticker.
func (s *SnapshotFetcher) Fetch(ctx context.Context, tickers []string) (*Result, error) {
	result := &Result{Profiles: make([]domain.FundamentalMetrics, 0, len(tickers))}

	for _, ticker := range tickers {
		snap, err := s.snapshots.GetLatestByTicker(ctx, ticker)
		if errors.Is(err, storage.ErrNotFound) {
			result.Skipped++
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{
					"ticker": ticker,
					"reason": "no stored snapshot",
				}).Info("Ticker skipped")
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load snapshot for %s: %w", ticker, err)
		}
		result.Profiles = append(result.Profiles, snap.Metrics)
	}

	sort.Slice(result.Profiles, func(i, j int) bool {
		return result.Profiles[i].Ticker < result.Profiles[j].Ticker
	})

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"tickers": len(tickers),
			"fetched": len(result.Profiles),
			"skipped": result.Skipped,
		}).Info("Offline fetch pass complete")
	}
	return result, nil
}
