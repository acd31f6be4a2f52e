package engine

import "errors"

// Engine errors. Programmer errors abort the whole operation with nothing
// applied; caller-policy conditions (querying an unknown pool, claiming a
// zero balance) never error and return zero values instead.
var (
	// ErrPoolExists is returned when a pool is registered twice.
	ErrPoolExists = errors.New("pool already registered")

	// ErrPoolNotFound is returned when a mutating operation targets an
	// unregistered pool.
	ErrPoolNotFound = errors.New("pool not registered")

	// ErrPositionExists is returned when subscribing an (owner, pool, range)
	// key that is already live. Use ModifyPosition to change its coverage.
	ErrPositionExists = errors.New("position already exists")

	// ErrPositionNotFound is returned when a mutating operation targets an
	// unknown position.
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidLiquidity is returned for a zero or negative subscribe magnitude.
	ErrInvalidLiquidity = errors.New("liquidity must be positive")

	// ErrInvalidAmount is returned for a zero or negative funding amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)
