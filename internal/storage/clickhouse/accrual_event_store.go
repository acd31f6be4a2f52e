package clickhouse

import (
	"context"
	"fmt"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// AccrualEventStore implements storage.AccrualEventStore using ClickHouse.
// The settle log is append-only; MergeTree gives cheap bulk inserts and
// time-ordered scans, which is all analytics needs.
type AccrualEventStore struct {
	conn *Conn
}

// NewAccrualEventStore creates a new AccrualEventStore.
func NewAccrualEventStore(conn *Conn) *AccrualEventStore {
	return &AccrualEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AccrualEventStore = (*AccrualEventStore)(nil)

// InsertBulk adds multiple settle events in one batch.
func (s *AccrualEventStore) InsertBulk(ctx context.Context, events []*domain.AccrualEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO accrual_events (
			position_id, pool_id, mint, amount, tick, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.PositionID, e.PoolID, e.Mint, e.Amount, e.Tick, uint64(e.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPool retrieves all accrual events for a pool, ordered by timestamp ASC.
func (s *AccrualEventStore) GetByPool(ctx context.Context, poolID string) ([]*domain.AccrualEvent, error) {
	query := `
		SELECT position_id, pool_id, mint, amount, tick, timestamp
		FROM accrual_events
		WHERE pool_id = ?
		ORDER BY timestamp ASC, position_id ASC
	`

	rows, err := s.conn.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("query accrual events by pool: %w", err)
	}
	defer rows.Close()

	return scanAccrualEvents(rows)
}

// GetByTimeRange retrieves events for a pool within [start, end] (inclusive).
func (s *AccrualEventStore) GetByTimeRange(ctx context.Context, poolID string, start, end int64) ([]*domain.AccrualEvent, error) {
	query := `
		SELECT position_id, pool_id, mint, amount, tick, timestamp
		FROM accrual_events
		WHERE pool_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, position_id ASC
	`

	rows, err := s.conn.Query(ctx, query, poolID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query accrual events by time range: %w", err)
	}
	defer rows.Close()

	return scanAccrualEvents(rows)
}

// chRows is the row iterator surface the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanAccrualEvents scans multiple rows.
func scanAccrualEvents(rows chRows) ([]*domain.AccrualEvent, error) {
	var events []*domain.AccrualEvent

	for rows.Next() {
		var e domain.AccrualEvent
		var timestamp uint64

		err := rows.Scan(
			&e.PositionID, &e.PoolID, &e.Mint, &e.Amount, &e.Tick, &timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan accrual event row: %w", err)
		}

		e.Timestamp = int64(timestamp)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accrual event rows: %w", err)
	}

	return events, nil
}
