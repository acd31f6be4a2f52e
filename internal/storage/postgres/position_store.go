package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	owed, err := json.Marshal(nonNilOwed(p.Owed))
	if err != nil {
		return fmt.Errorf("marshal owed balances: %w", err)
	}

	query := `
		INSERT INTO positions (
			position_id, owner, pool_id, tick_lower, tick_upper, liquidity, owed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		p.PositionID,
		p.Owner,
		p.PoolID,
		p.TickLower,
		p.TickUpper,
		p.Liquidity,
		owed,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update replaces the mutable state of an existing position.
// Returns ErrNotFound if position_id does not exist.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	owed, err := json.Marshal(nonNilOwed(p.Owed))
	if err != nil {
		return fmt.Errorf("marshal owed balances: %w", err)
	}

	query := `
		UPDATE positions
		SET liquidity = $2, owed = $3, updated_at = $4
		WHERE position_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, p.PositionID, p.Liquidity, owed, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a position. Returns ErrNotFound if position_id does not exist.
func (s *PositionStore) Delete(ctx context.Context, positionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE position_id = $1`, positionID)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `
		SELECT position_id, owner, pool_id, tick_lower, tick_upper, liquidity, owed, created_at, updated_at
		FROM positions
		WHERE position_id = $1
	`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, positionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetByPool retrieves all positions for a pool, ordered by creation time ASC.
func (s *PositionStore) GetByPool(ctx context.Context, poolID string) ([]*domain.Position, error) {
	query := `
		SELECT position_id, owner, pool_id, tick_lower, tick_upper, liquidity, owed, created_at, updated_at
		FROM positions
		WHERE pool_id = $1
		ORDER BY created_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get positions by pool: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}

// scanPosition scans one row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var owed []byte

	err := row.Scan(
		&p.PositionID,
		&p.Owner,
		&p.PoolID,
		&p.TickLower,
		&p.TickUpper,
		&p.Liquidity,
		&owed,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(owed, &p.Owed); err != nil {
		return nil, fmt.Errorf("unmarshal owed balances: %w", err)
	}
	return &p, nil
}

// nonNilOwed normalizes a nil map to an empty one so the column always holds
// a JSON object.
func nonNilOwed(owed map[string]string) map[string]string {
	if owed == nil {
		return map[string]string{}
	}
	return owed
}
