// Package reporting builds reward distribution reports from stored funding,
// claim, and position data. Its core check is conservation: everything funded
// is either claimed, still owed, or accounted residual; nothing is minted or
// lost.
package reporting

import "time"

// MintSummary aggregates one reward mint within a pool.
type MintSummary struct {
	Mint string

	// TotalFunded is the sum of all funded amounts, decimal string.
	TotalFunded string
	// TotalClaimed is the sum of all paid-out claims, decimal string.
	TotalClaimed string
	// TotalOutstanding is the sum of checkpointed owed balances across live
	// positions, decimal string.
	TotalOutstanding string
	// Residual is funded - claimed - outstanding: truncation dust plus
	// amounts not yet streamed or still carried, decimal string.
	Residual string

	// ClaimedShare is claimed/funded as a percentage with four decimal
	// places, "0" when nothing was funded.
	ClaimedShare string
}

// PoolReport is the reward distribution report for one pool.
type PoolReport struct {
	PoolID      string
	GeneratedAt time.Time

	FundingEvents int
	Claims        int
	LivePositions int

	Mints []MintSummary

	// Conserved is true when no mint's residual is negative. A negative
	// residual means more was paid or owed than funded.
	Conserved bool
}
