package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// CriterionOutcomeStore is an in-memory implementation of
// storage.CriterionOutcomeStore. Re-inserting a key replaces the row, the
// same net effect as the ClickHouse ReplacingMergeTree table.
type CriterionOutcomeStore struct {
	mu   sync.RWMutex
	data map[outcomeKey]*domain.CriterionOutcome
}

type outcomeKey struct {
	runID     string
	ticker    string
	criterion string
}

// NewCriterionOutcomeStore creates a new in-memory criterion outcome store.
func NewCriterionOutcomeStore() *CriterionOutcomeStore {
	return &CriterionOutcomeStore{
		data: make(map[outcomeKey]*domain.CriterionOutcome),
	}
}

// Compile-time interface check.
var _ storage.CriterionOutcomeStore = (*CriterionOutcomeStore)(nil)

// InsertBulk adds per-criterion screening rows.
func (s *CriterionOutcomeStore) InsertBulk(_ context.Context, outcomes []*domain.CriterionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range outcomes {
		if o == nil || o.RunID == "" || o.Ticker == "" || o.Criterion == "" {
			return storage.ErrInvalidInput
		}
		outcomeCopy := *o
		s.data[outcomeKey{o.RunID, o.Ticker, o.Criterion}] = &outcomeCopy
	}
	return nil
}

// GetByRun retrieves all criterion rows for a run, ordered by
// (ticker, criterion) ASC.
func (s *CriterionOutcomeStore) GetByRun(_ context.Context, runID string) ([]*domain.CriterionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CriterionOutcome
	for key, o := range s.data {
		if key.runID == runID {
			outcomeCopy := *o
			result = append(result, &outcomeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Ticker != result[j].Ticker {
			return result[i].Ticker < result[j].Ticker
		}
		return result[i].Criterion < result[j].Criterion
	})

	return result, nil
}

// PassRateByCriterion returns, per criterion name, the fraction of
// companies in the run that passed it.
func (s *CriterionOutcomeStore) PassRateByCriterion(_ context.Context, runID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := make(map[string]int)
	passed := make(map[string]int)
	for key, o := range s.data {
		if key.runID != runID {
			continue
		}
		total[o.Criterion]++
		if o.Pass {
			passed[o.Criterion]++
		}
	}

	rates := make(map[string]float64, len(total))
	for criterion, n := range total {
		rates[criterion] = float64(passed[criterion]) / float64(n)
	}
	return rates, nil
}
