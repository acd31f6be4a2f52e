package domain

// Pool describes a registered concentrated-liquidity pool whose reward
// streams are tracked by the engine.
// Corresponds to pools table in PostgreSQL.
type Pool struct {
	PoolID      string   // Pool address (base58)
	InitialTick int32    // tick at bootstrap
	RewardMints []string // reward mint addresses, append-only registry
	CreatedAt   int64    // record creation timestamp (unix seconds)
}

// SecondsPerDay is the length of one emission day window.
const SecondsPerDay int64 = 86400

// DayIndex returns the UTC day bucket index for a unix timestamp.
func DayIndex(unix int64) int64 {
	if unix < 0 {
		// Round toward negative infinity so pre-epoch timestamps still
		// land in a well-defined bucket.
		return (unix - SecondsPerDay + 1) / SecondsPerDay
	}
	return unix / SecondsPerDay
}

// DayStart returns the unix timestamp at which day bucket d begins.
func DayStart(d int64) int64 {
	return d * SecondsPerDay
}
