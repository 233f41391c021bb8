package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// ModelRunStore is an in-memory implementation of storage.ModelRunStore.
type ModelRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ModelRun // keyed by model_run_id
}

// NewModelRunStore creates a new in-memory model run store.
func NewModelRunStore() *ModelRunStore {
	return &ModelRunStore{
		data: make(map[string]*domain.ModelRun),
	}
}

// Compile-time interface check.
var _ storage.ModelRunStore = (*ModelRunStore)(nil)

// Insert adds a new model run. Returns ErrDuplicateKey if model_run_id exists.
func (s *ModelRunStore) Insert(_ context.Context, m *domain.ModelRun) error {
	if m == nil || m.ModelRunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.ModelRunID]; exists {
		return storage.ErrDuplicateKey
	}
	runCopy := *m
	s.data[m.ModelRunID] = &runCopy
	return nil
}

// InsertBulk adds multiple model runs. Fails entire batch on any duplicate,
// leaving the store untouched.
func (s *ModelRunStore) InsertBulk(_ context.Context, runs []*domain.ModelRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(runs))
	for _, m := range runs {
		if m == nil || m.ModelRunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[m.ModelRunID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[m.ModelRunID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[m.ModelRunID] = struct{}{}
	}
	for _, m := range runs {
		runCopy := *m
		s.data[m.ModelRunID] = &runCopy
	}
	return nil
}

// GetByRun retrieves all model runs for a run, ordered by IRR DESC with
// ticker ASC as a deterministic tie-break.
func (s *ModelRunStore) GetByRun(_ context.Context, runID string) ([]*domain.ModelRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ModelRun
	for _, m := range s.data {
		if m.RunID == runID {
			runCopy := *m
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Returns.IRR != result[j].Returns.IRR {
			return result[i].Returns.IRR > result[j].Returns.IRR
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// GetByTicker retrieves all model runs for a ticker, newest first.
func (s *ModelRunStore) GetByTicker(_ context.Context, ticker string) ([]*domain.ModelRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ModelRun
	for _, m := range s.data {
		if m.Ticker == ticker {
			runCopy := *m
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ModelRunID < result[j].ModelRunID
	})

	return result, nil
}
