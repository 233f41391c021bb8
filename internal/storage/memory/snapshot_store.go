package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FundamentalSnapshot // keyed by snapshot_id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.FundamentalSnapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.FundamentalSnapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(snap)
}

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate,
// leaving the store untouched.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.FundamentalSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.SnapshotID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[snap.SnapshotID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[snap.SnapshotID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[snap.SnapshotID] = struct{}{}
	}
	for _, snap := range snapshots {
		snapCopy := *snap
		s.data[snap.SnapshotID] = &snapCopy
	}
	return nil
}

func (s *SnapshotStore) insertLocked(snap *domain.FundamentalSnapshot) error {
	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}
	snapCopy := *snap
	s.data[snap.SnapshotID] = &snapCopy
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.FundamentalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *snap
	return &snapCopy, nil
}

// GetByTicker retrieves all snapshots for a ticker, newest first.
func (s *SnapshotStore) GetByTicker(_ context.Context, ticker string) ([]*domain.FundamentalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FundamentalSnapshot
	for _, snap := range s.data {
		if snap.Metrics.Ticker == ticker {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].SnapshotID < result[j].SnapshotID
	})

	return result, nil
}

// GetLatestByTicker retrieves the most recent snapshot for a ticker.
func (s *SnapshotStore) GetLatestByTicker(ctx context.Context, ticker string) (*domain.FundamentalSnapshot, error) {
	snapshots, err := s.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, storage.ErrNotFound
	}
	return snapshots[0], nil
}

// GetByRun retrieves the snapshots captured in a run, ordered by ticker ASC.
func (s *SnapshotStore) GetByRun(_ context.Context, runID string) ([]*domain.FundamentalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FundamentalSnapshot
	for _, snap := range s.data {
		if snap.RunID == runID {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Metrics.Ticker < result[j].Metrics.Ticker
	})

	return result, nil
}
