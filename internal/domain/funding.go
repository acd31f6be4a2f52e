package domain

// FundingEvent records one funding of a reward stream.
// Corresponds to funding_events table in PostgreSQL.
type FundingEvent struct {
	ID        int64  // BIGSERIAL primary key
	PoolID    string // pool address (base58)
	Mint      string // reward mint address (base58)
	Amount    string // funded amount, decimal string
	DayIndex  int64  // target day bucket (funding day + 2)
	FundedAt  int64  // unix seconds of the funding call
	CreatedAt int64  // record creation timestamp (unix seconds)
}
