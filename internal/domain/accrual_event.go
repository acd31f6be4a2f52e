package domain

// AccrualEvent is one settled accrual, emitted for analytics.
// Corresponds to accrual_events table in ClickHouse.
type AccrualEvent struct {
	PositionID string // position that accrued
	PoolID     string // pool address (base58)
	Mint       string // reward mint address (base58)
	Amount     string // accrued amount for this settle, decimal string
	Tick       int32  // current tick at settle time
	Timestamp  int64  // unix seconds of the settle
}
