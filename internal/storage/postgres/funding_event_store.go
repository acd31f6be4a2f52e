package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// FundingEventStore implements storage.FundingEventStore using PostgreSQL.
type FundingEventStore struct {
	pool *Pool
}

// NewFundingEventStore creates a new FundingEventStore.
func NewFundingEventStore(pool *Pool) *FundingEventStore {
	return &FundingEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FundingEventStore = (*FundingEventStore)(nil)

// Insert adds a new funding event and fills in the generated ID.
func (s *FundingEventStore) Insert(ctx context.Context, e *domain.FundingEvent) error {
	query := `
		INSERT INTO funding_events (
			pool_id, mint, amount, day_index, funded_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		e.PoolID,
		e.Mint,
		e.Amount,
		e.DayIndex,
		e.FundedAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert funding event: %w", err)
	}
	return nil
}

// GetByPool retrieves all funding events for a pool, ordered by funding time ASC.
func (s *FundingEventStore) GetByPool(ctx context.Context, poolID string) ([]*domain.FundingEvent, error) {
	query := `
		SELECT id, pool_id, mint, amount, day_index, funded_at, created_at
		FROM funding_events
		WHERE pool_id = $1
		ORDER BY funded_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get funding events by pool: %w", err)
	}
	defer rows.Close()

	return scanFundingEvents(rows)
}

// GetByPoolAndDay retrieves funding events targeting a specific day bucket.
func (s *FundingEventStore) GetByPoolAndDay(ctx context.Context, poolID string, dayIndex int64) ([]*domain.FundingEvent, error) {
	query := `
		SELECT id, pool_id, mint, amount, day_index, funded_at, created_at
		FROM funding_events
		WHERE pool_id = $1 AND day_index = $2
		ORDER BY funded_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID, dayIndex)
	if err != nil {
		return nil, fmt.Errorf("get funding events by pool and day: %w", err)
	}
	defer rows.Close()

	return scanFundingEvents(rows)
}

// scanFundingEvents scans multiple rows into a slice of FundingEvent.
func scanFundingEvents(rows pgx.Rows) ([]*domain.FundingEvent, error) {
	var events []*domain.FundingEvent

	for rows.Next() {
		var e domain.FundingEvent

		err := rows.Scan(
			&e.ID,
			&e.PoolID,
			&e.Mint,
			&e.Amount,
			&e.DayIndex,
			&e.FundedAt,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan funding event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funding event rows: %w", err)
	}

	return events, nil
}
