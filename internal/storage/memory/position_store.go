package memory

import (
	"context"
	"sort"
	"sync"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[p.PositionID] = copyPosition(p)
	return nil
}

// Update replaces the stored state of an existing position.
func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; !exists {
		return storage.ErrNotFound
	}
	s.data[p.PositionID] = copyPosition(p)
	return nil
}

// Delete removes a position. Returns ErrNotFound if position_id does not exist.
func (s *PositionStore) Delete(_ context.Context, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[positionID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, positionID)
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[positionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPosition(p), nil
}

// GetByPool retrieves all positions for a pool, ordered by creation time ASC.
func (s *PositionStore) GetByPool(_ context.Context, poolID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.PoolID == poolID {
			result = append(result, copyPosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].PositionID < result[j].PositionID
	})

	return result, nil
}

func copyPosition(p *domain.Position) *domain.Position {
	cp := *p
	cp.Owed = make(map[string]string, len(p.Owed))
	for k, v := range p.Owed {
		cp.Owed[k] = v
	}
	return &cp
}
