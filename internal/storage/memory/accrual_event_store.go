package memory

import (
	"context"
	"sort"
	"sync"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// AccrualEventStore is an in-memory implementation of storage.AccrualEventStore.
type AccrualEventStore struct {
	mu   sync.RWMutex
	data []*domain.AccrualEvent
}

// NewAccrualEventStore creates a new in-memory accrual event store.
func NewAccrualEventStore() *AccrualEventStore {
	return &AccrualEventStore{}
}

// Compile-time interface check.
var _ storage.AccrualEventStore = (*AccrualEventStore)(nil)

// InsertBulk adds multiple accrual events. Append-only, no dedupe.
func (s *AccrualEventStore) InsertBulk(_ context.Context, events []*domain.AccrualEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.PositionID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		cp := *e
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByPool retrieves all accrual events for a pool, ordered by timestamp ASC.
func (s *AccrualEventStore) GetByPool(_ context.Context, poolID string) ([]*domain.AccrualEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AccrualEvent
	for _, e := range s.data {
		if e.PoolID == poolID {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortAccruals(result)
	return result, nil
}

// GetByTimeRange retrieves events for a pool within [start, end] (inclusive).
func (s *AccrualEventStore) GetByTimeRange(_ context.Context, poolID string, start, end int64) ([]*domain.AccrualEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AccrualEvent
	for _, e := range s.data {
		if e.PoolID == poolID && e.Timestamp >= start && e.Timestamp <= end {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortAccruals(result)
	return result, nil
}

func sortAccruals(events []*domain.AccrualEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].PositionID < events[j].PositionID
	})
}
