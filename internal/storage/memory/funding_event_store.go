package memory

import (
	"context"
	"sort"
	"sync"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// FundingEventStore is an in-memory implementation of storage.FundingEventStore.
type FundingEventStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []*domain.FundingEvent
}

// NewFundingEventStore creates a new in-memory funding event store.
func NewFundingEventStore() *FundingEventStore {
	return &FundingEventStore{nextID: 1}
}

// Compile-time interface check.
var _ storage.FundingEventStore = (*FundingEventStore)(nil)

// Insert adds a new funding event.
func (s *FundingEventStore) Insert(_ context.Context, e *domain.FundingEvent) error {
	if e == nil || e.PoolID == "" || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	cp.ID = s.nextID
	s.nextID++
	s.data = append(s.data, &cp)
	return nil
}

// GetByPool retrieves all funding events for a pool, ordered by funding time ASC.
func (s *FundingEventStore) GetByPool(_ context.Context, poolID string) ([]*domain.FundingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FundingEvent
	for _, e := range s.data {
		if e.PoolID == poolID {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortFunding(result)
	return result, nil
}

// GetByPoolAndDay retrieves funding events targeting a specific day bucket.
func (s *FundingEventStore) GetByPoolAndDay(_ context.Context, poolID string, dayIndex int64) ([]*domain.FundingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FundingEvent
	for _, e := range s.data {
		if e.PoolID == poolID && e.DayIndex == dayIndex {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortFunding(result)
	return result, nil
}

func sortFunding(events []*domain.FundingEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].FundedAt != events[j].FundedAt {
			return events[i].FundedAt < events[j].FundedAt
		}
		return events[i].ID < events[j].ID
	})
}
