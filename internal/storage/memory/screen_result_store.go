package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// ScreenResultStore is an in-memory implementation of storage.ScreenResultStore.
type ScreenResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScreenResult // keyed by result_id
}

// NewScreenResultStore creates a new in-memory screen result store.
func NewScreenResultStore() *ScreenResultStore {
	return &ScreenResultStore{
		data: make(map[string]*domain.ScreenResult),
	}
}

// Compile-time interface check.
var _ storage.ScreenResultStore = (*ScreenResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *ScreenResultStore) Insert(_ context.Context, r *domain.ScreenResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ResultID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[r.ResultID] = copyResult(r)
	return nil
}

// InsertBulk adds multiple results. Fails entire batch on any duplicate,
// leaving the store untouched.
func (s *ScreenResultStore) InsertBulk(_ context.Context, results []*domain.ScreenResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.ResultID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.ResultID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[r.ResultID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.ResultID] = struct{}{}
	}
	for _, r := range results {
		s.data[r.ResultID] = copyResult(r)
	}
	return nil
}

// GetByRun retrieves all results for a run, ordered by ticker ASC.
func (s *ScreenResultStore) GetByRun(_ context.Context, runID string) ([]*domain.ScreenResult, error) {
	return s.getByRun(runID, false)
}

// GetByRunPassed retrieves only passing results for a run, ordered by ticker ASC.
func (s *ScreenResultStore) GetByRunPassed(_ context.Context, runID string) ([]*domain.ScreenResult, error) {
	return s.getByRun(runID, true)
}

func (s *ScreenResultStore) getByRun(runID string, passedOnly bool) ([]*domain.ScreenResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScreenResult
	for _, r := range s.data {
		if r.RunID != runID {
			continue
		}
		if passedOnly && !r.Passed {
			continue
		}
		result = append(result, copyResult(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// copyResult deep-copies the result so callers cannot mutate stored rows
// through the shared Criteria slice.
func copyResult(r *domain.ScreenResult) *domain.ScreenResult {
	resultCopy := *r
	resultCopy.Criteria = append([]domain.CriterionResult(nil), r.Criteria...)
	return &resultCopy
}
