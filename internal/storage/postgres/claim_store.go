package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

// ClaimStore implements storage.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *Pool
}

// NewClaimStore creates a new ClaimStore.
func NewClaimStore(pool *Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

// Insert adds a new claim record and fills in the generated ID.
func (s *ClaimStore) Insert(ctx context.Context, c *domain.ClaimRecord) error {
	query := `
		INSERT INTO claims (
			position_id, pool_id, owner, mint, amount, claimed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		c.PositionID,
		c.PoolID,
		c.Owner,
		c.Mint,
		c.Amount,
		c.ClaimedAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetByPosition retrieves all claims for a position, ordered by claim time ASC.
func (s *ClaimStore) GetByPosition(ctx context.Context, positionID string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT id, position_id, pool_id, owner, mint, amount, claimed_at, created_at
		FROM claims
		WHERE position_id = $1
		ORDER BY claimed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("get claims by position: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// GetByPool retrieves all claims for a pool, ordered by claim time ASC.
func (s *ClaimStore) GetByPool(ctx context.Context, poolID string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT id, position_id, pool_id, owner, mint, amount, claimed_at, created_at
		FROM claims
		WHERE pool_id = $1
		ORDER BY claimed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get claims by pool: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// scanClaims scans multiple rows into a slice of ClaimRecord.
func scanClaims(rows pgx.Rows) ([]*domain.ClaimRecord, error) {
	var claims []*domain.ClaimRecord

	for rows.Next() {
		var c domain.ClaimRecord

		err := rows.Scan(
			&c.ID,
			&c.PositionID,
			&c.PoolID,
			&c.Owner,
			&c.Mint,
			&c.Amount,
			&c.ClaimedAt,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}

		claims = append(claims, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}

	return claims, nil
}
