package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// SensitivityCellStore is an in-memory implementation of
// storage.SensitivityCellStore. Re-inserting a key replaces the row, the
// same net effect as the ClickHouse ReplacingMergeTree table.
type SensitivityCellStore struct {
	mu   sync.RWMutex
	data map[sensitivityKey]domain.SensitivityPoint
}

type sensitivityKey struct {
	runID  string
	ticker string
	entry  float64
	exit   float64
}

// NewSensitivityCellStore creates a new in-memory sensitivity cell store.
func NewSensitivityCellStore() *SensitivityCellStore {
	return &SensitivityCellStore{
		data: make(map[sensitivityKey]domain.SensitivityPoint),
	}
}

// Compile-time interface check.
var _ storage.SensitivityCellStore = (*SensitivityCellStore)(nil)

// InsertBulk adds the flattened cells of one or more grids.
func (s *SensitivityCellStore) InsertBulk(_ context.Context, points []domain.SensitivityPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p.RunID == "" || p.Ticker == "" {
			return storage.ErrInvalidInput
		}
		s.data[sensitivityKey{p.RunID, p.Ticker, p.EntryMultiple, p.ExitMultiple}] = p
	}
	return nil
}

// GetByRunTicker retrieves one candidate's grid cells for a run, ordered by
// (entry_multiple, exit_multiple) ASC.
func (s *SensitivityCellStore) GetByRunTicker(_ context.Context, runID, ticker string) ([]domain.SensitivityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SensitivityPoint
	for key, p := range s.data {
		if key.runID == runID && key.ticker == ticker {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryMultiple != result[j].EntryMultiple {
			return result[i].EntryMultiple < result[j].EntryMultiple
		}
		return result[i].ExitMultiple < result[j].ExitMultiple
	})

	return result, nil
}
