package domain

// ClaimRecord records one payout of accrued rewards to a position owner.
// Corresponds to claims table in PostgreSQL.
type ClaimRecord struct {
	ID         int64  // BIGSERIAL primary key
	PositionID string // position the claim settled
	PoolID     string // pool address (base58)
	Owner      string // recipient address (base58)
	Mint       string // reward mint address (base58)
	Amount     string // claimed amount, decimal string
	ClaimedAt  int64  // unix seconds
	CreatedAt  int64  // record creation timestamp (unix seconds)
}
