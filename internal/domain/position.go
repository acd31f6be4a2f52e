package domain

// Position is the persisted form of a staked liquidity range.
// Corresponds to positions table in PostgreSQL. Live accrual state
// (reward snapshots, owed balances) is rebuilt by the engine; the stored
// owed amounts are a checkpoint of the last settle.
type Position struct {
	PositionID string            // deterministic hash of (owner, pool, range)
	Owner      string            // owner address (base58)
	PoolID     string            // pool address (base58)
	TickLower  int32             // inclusive lower bound of coverage
	TickUpper  int32             // exclusive upper bound of coverage
	Liquidity  string            // decimal string, u128 range
	Owed       map[string]string // mint -> accrued-unclaimed amount, decimal string
	CreatedAt  int64             // unix seconds
	UpdatedAt  int64             // unix seconds
}

// BurnPolicy selects what happens to accrued rewards when a position is burned.
type BurnPolicy string

// Burn policy constants.
const (
	BurnClaim   BurnPolicy = "claim"   // settle and pay out before clearing
	BurnForfeit BurnPolicy = "forfeit" // drop accrued rewards and clear
)
