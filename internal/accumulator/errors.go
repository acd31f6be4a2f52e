package accumulator

import "errors"

// Fatal programmer errors. Any of these aborts the whole operation with
// nothing applied; they signal an invariant violation upstream.
var (
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("pool state already initialized")

	// ErrNotInitialized is returned when a mutating operation runs before Initialize.
	ErrNotInitialized = errors.New("pool state not initialized")

	// ErrNoActiveLiquidity is returned when Accumulate is called with zero
	// active liquidity. The caller must retain the amounts instead.
	ErrNoActiveLiquidity = errors.New("accumulate with zero active liquidity")

	// ErrLiquidityUnderflow is returned when a modification would remove more
	// liquidity than is present, at a tick or in the active counter.
	ErrLiquidityUnderflow = errors.New("liquidity underflow")

	// ErrInvalidTickRange is returned for an empty or inverted [lower, upper) range.
	ErrInvalidTickRange = errors.New("invalid tick range")

	// ErrNegativeAmount is returned when a negative reward amount is accumulated.
	ErrNegativeAmount = errors.New("negative reward amount")
)
