package storage

import (
	"context"

	"clm-rewards/internal/domain"
)

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update replaces the stored state of an existing position.
	// Returns ErrNotFound if position_id does not exist.
	Update(ctx context.Context, p *domain.Position) error

	// Delete removes a position. Returns ErrNotFound if position_id does not exist.
	Delete(ctx context.Context, positionID string) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetByPool retrieves all positions for a pool, ordered by creation time ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.Position, error)
}

// FundingEventStore provides access to funding_events storage.
type FundingEventStore interface {
	// Insert adds a new funding event.
	Insert(ctx context.Context, e *domain.FundingEvent) error

	// GetByPool retrieves all funding events for a pool, ordered by funding time ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.FundingEvent, error)

	// GetByPoolAndDay retrieves funding events targeting a specific day bucket.
	GetByPoolAndDay(ctx context.Context, poolID string, dayIndex int64) ([]*domain.FundingEvent, error)
}

// ClaimStore provides access to claims storage.
type ClaimStore interface {
	// Insert adds a new claim record.
	Insert(ctx context.Context, c *domain.ClaimRecord) error

	// GetByPosition retrieves all claims for a position, ordered by claim time ASC.
	GetByPosition(ctx context.Context, positionID string) ([]*domain.ClaimRecord, error)

	// GetByPool retrieves all claims for a pool, ordered by claim time ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.ClaimRecord, error)
}

// AccrualEventStore provides access to the append-only accrual analytics log.
type AccrualEventStore interface {
	// InsertBulk adds multiple accrual events. Append-only, no dedupe: the
	// engine emits each settle exactly once.
	InsertBulk(ctx context.Context, events []*domain.AccrualEvent) error

	// GetByPool retrieves all accrual events for a pool, ordered by timestamp ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.AccrualEvent, error)

	// GetByTimeRange retrieves events for a pool within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, poolID string, start, end int64) ([]*domain.AccrualEvent, error)
}
