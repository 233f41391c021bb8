package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// CompanyStore is an in-memory implementation of storage.CompanyStore.
type CompanyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Company // keyed by ticker
}

// NewCompanyStore creates a new in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		data: make(map[string]*domain.Company),
	}
}

// Compile-time interface check.
var _ storage.CompanyStore = (*CompanyStore)(nil)

// Insert adds a new company. Returns ErrDuplicateKey if ticker exists.
func (s *CompanyStore) Insert(_ context.Context, c *domain.Company) error {
	if c == nil || c.Ticker == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.Ticker]; exists {
		return storage.ErrDuplicateKey
	}

	companyCopy := *c
	s.data[c.Ticker] = &companyCopy
	return nil
}

// Upsert inserts the company or refreshes its profile fields.
func (s *CompanyStore) Upsert(_ context.Context, c *domain.Company) error {
	if c == nil || c.Ticker == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	companyCopy := *c
	if existing, ok := s.data[c.Ticker]; ok {
		// Keep the original registration time on refresh.
		companyCopy.AddedAt = existing.AddedAt
	}
	s.data[c.Ticker] = &companyCopy
	return nil
}

// GetByTicker retrieves a company by ticker. Returns ErrNotFound if not exists.
func (s *CompanyStore) GetByTicker(_ context.Context, ticker string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[ticker]
	if !exists {
		return nil, storage.ErrNotFound
	}

	companyCopy := *c
	return &companyCopy, nil
}

// GetAll retrieves every company, ordered by ticker ASC.
func (s *CompanyStore) GetAll(_ context.Context) ([]*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Company, 0, len(s.data))
	for _, c := range s.data {
		companyCopy := *c
		result = append(result, &companyCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}
