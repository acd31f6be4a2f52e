package memory

import (
	"context"
	"sort"
	"sync"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// ClaimStore is an in-memory implementation of storage.ClaimStore.
type ClaimStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []*domain.ClaimRecord
}

// NewClaimStore creates a new in-memory claim store.
func NewClaimStore() *ClaimStore {
	return &ClaimStore{nextID: 1}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

// Insert adds a new claim record.
func (s *ClaimStore) Insert(_ context.Context, c *domain.ClaimRecord) error {
	if c == nil || c.PositionID == "" || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	cp.ID = s.nextID
	s.nextID++
	s.data = append(s.data, &cp)
	return nil
}

// GetByPosition retrieves all claims for a position, ordered by claim time ASC.
func (s *ClaimStore) GetByPosition(_ context.Context, positionID string) ([]*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimRecord
	for _, c := range s.data {
		if c.PositionID == positionID {
			cp := *c
			result = append(result, &cp)
		}
	}
	sortClaims(result)
	return result, nil
}

// GetByPool retrieves all claims for a pool, ordered by claim time ASC.
func (s *ClaimStore) GetByPool(_ context.Context, poolID string) ([]*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimRecord
	for _, c := range s.data {
		if c.PoolID == poolID {
			cp := *c
			result = append(result, &cp)
		}
	}
	sortClaims(result)
	return result, nil
}

func sortClaims(claims []*domain.ClaimRecord) {
	sort.Slice(claims, func(i, j int) bool {
		if claims[i].ClaimedAt != claims[j].ClaimedAt {
			return claims[i].ClaimedAt < claims[j].ClaimedAt
		}
		return claims[i].ID < claims[j].ID
	})
}
