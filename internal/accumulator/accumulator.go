// Package accumulator tracks, per pool and reward mint, the all-time
// cumulative reward per unit of active liquidity in Q128 fixed point, and
// answers how much of that growth happened while the current tick was inside
// an arbitrary [lower, upper) range.
//
// The trick is the per-tick "outside" snapshot: every initialized tick keeps,
// per mint, the cumulative value frozen the last time the current tick
// crossed it. Flipping the snapshot (outside = cumulative - outside) on every
// crossing lets range queries reduce to two subtractions instead of per
// position bookkeeping.
package accumulator

import (
	"math/big"
	"sort"
)

// Q128Shift is the number of fractional bits carried by per-unit cumulatives.
const Q128Shift = 128

// TickInfo is the sparse per-tick state. A tick is initialized exactly while
// its gross liquidity is nonzero.
type TickInfo struct {
	// GrossLiquidity is the total liquidity of all positions referencing this
	// tick as a boundary. Used for flip detection only.
	GrossLiquidity *big.Int

	// NetLiquidity is the signed delta applied to active liquidity when the
	// current tick crosses this tick moving up (negated moving down).
	NetLiquidity *big.Int

	// Outside holds, per mint, the cumulative reward-per-unit frozen the last
	// time the current tick crossed this tick.
	Outside map[string]*big.Int
}

// PoolState is the per-pool accumulator state. All methods either complete
// fully or return an error with nothing applied; validation precedes every
// mutation. Callers serialize access (single writer per pool).
type PoolState struct {
	initialized bool
	currentTick int32
	lastUpdated int64

	// liquidity is the active coverage: the sum of liquidity of all positions
	// whose range contains the current tick. Never negative.
	liquidity *big.Int

	// mints is the append-only registry of reward mints seen by this pool.
	mints []string

	// cumulative maps mint to all-time reward-per-unit-liquidity, Q128.
	cumulative map[string]*big.Int

	ticks map[int32]*TickInfo
}

// NewPoolState creates an empty, uninitialized pool state.
func NewPoolState() *PoolState {
	return &PoolState{
		liquidity:  new(big.Int),
		cumulative: make(map[string]*big.Int),
		ticks:      make(map[int32]*TickInfo),
	}
}

// Initialize sets the starting tick and timestamp. One-time; a second call is
// a programmer error.
func (p *PoolState) Initialize(tick int32, now int64) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	p.initialized = true
	p.currentTick = tick
	p.lastUpdated = now
	return nil
}

// Initialized reports whether Initialize has run.
func (p *PoolState) Initialized() bool { return p.initialized }

// CurrentTick returns the active tick. Zero value before Initialize.
func (p *PoolState) CurrentTick() int32 { return p.currentTick }

// LastUpdated returns the unix time of the last applied accumulation.
func (p *PoolState) LastUpdated() int64 { return p.lastUpdated }

// Liquidity returns a copy of the active liquidity.
func (p *PoolState) Liquidity() *big.Int { return new(big.Int).Set(p.liquidity) }

// Mints returns the registered reward mints in registration order.
func (p *PoolState) Mints() []string {
	out := make([]string, len(p.mints))
	copy(out, p.mints)
	return out
}

// Cumulative returns a copy of the all-time Q128 cumulative for mint,
// zero if the mint is unknown.
func (p *PoolState) Cumulative(mint string) *big.Int {
	if c, ok := p.cumulative[mint]; ok {
		return new(big.Int).Set(c)
	}
	return new(big.Int)
}

// RegisterMint adds a reward mint to the pool's registry. Registering an
// existing mint is a no-op. New mints start with zero cumulative, which is
// exact: nothing has streamed for them yet, so every outside snapshot of zero
// is consistent.
func (p *PoolState) RegisterMint(mint string) {
	if _, ok := p.cumulative[mint]; ok {
		return
	}
	p.mints = append(p.mints, mint)
	p.cumulative[mint] = new(big.Int)
}

// Accumulate folds reward amounts into the per-unit cumulatives:
// cumulative += amount << 128 / liquidity. Division truncates toward zero,
// bounding loss to under 2^-128 relative per call. Must only run with active
// liquidity; the caller retains amounts accrued during zero-coverage windows.
func (p *PoolState) Accumulate(amounts map[string]*big.Int) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if p.liquidity.Sign() == 0 {
		return ErrNoActiveLiquidity
	}
	for _, amt := range amounts {
		if amt != nil && amt.Sign() < 0 {
			return ErrNegativeAmount
		}
	}
	for mint, amt := range amounts {
		if amt == nil || amt.Sign() == 0 {
			continue
		}
		p.RegisterMint(mint)
		delta := new(big.Int).Lsh(amt, Q128Shift)
		delta.Quo(delta, p.liquidity)
		p.cumulative[mint].Add(p.cumulative[mint], delta)
	}
	return nil
}

// ModifyLiquidity applies a signed liquidity delta to the [lower, upper)
// range: +delta to gross/net at lower, +delta gross and -delta net at upper.
// A boundary whose gross liquidity flips from zero gets its outside snapshots
// initialized (to the current cumulative when the tick is at or below the
// current tick, zero when it lies ahead); a boundary flipping to zero is
// cleared entirely. If the range straddles the current tick the active
// liquidity moves by delta as well. Removing more than is present anywhere
// is a fatal error and nothing is applied.
func (p *PoolState) ModifyLiquidity(lower, upper int32, delta *big.Int) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if lower >= upper {
		return ErrInvalidTickRange
	}
	if delta == nil || delta.Sign() == 0 {
		return nil
	}

	lowerGross := p.grossAt(lower)
	upperGross := p.grossAt(upper)
	newLowerGross := new(big.Int).Add(lowerGross, delta)
	newUpperGross := new(big.Int).Add(upperGross, delta)
	if newLowerGross.Sign() < 0 || newUpperGross.Sign() < 0 {
		return ErrLiquidityUnderflow
	}

	inRange := lower <= p.currentTick && p.currentTick < upper
	var newLiquidity *big.Int
	if inRange {
		newLiquidity = new(big.Int).Add(p.liquidity, delta)
		if newLiquidity.Sign() < 0 {
			return ErrLiquidityUnderflow
		}
	}

	p.applyBoundary(lower, delta, newLowerGross, false)
	p.applyBoundary(upper, delta, newUpperGross, true)
	if inRange {
		p.liquidity = newLiquidity
	}
	return nil
}

// applyBoundary commits a validated gross/net change at one boundary tick.
func (p *PoolState) applyBoundary(tick int32, delta, newGross *big.Int, isUpper bool) {
	info, ok := p.ticks[tick]
	if !ok {
		// Flip on: first position referencing this tick.
		info = &TickInfo{
			GrossLiquidity: new(big.Int),
			NetLiquidity:   new(big.Int),
			Outside:        make(map[string]*big.Int, len(p.mints)),
		}
		for _, mint := range p.mints {
			if tick <= p.currentTick {
				info.Outside[mint] = new(big.Int).Set(p.cumulative[mint])
			} else {
				info.Outside[mint] = new(big.Int)
			}
		}
		p.ticks[tick] = info
	}

	info.GrossLiquidity.Set(newGross)
	if isUpper {
		info.NetLiquidity.Sub(info.NetLiquidity, delta)
	} else {
		info.NetLiquidity.Add(info.NetLiquidity, delta)
	}

	if info.GrossLiquidity.Sign() == 0 {
		// Flip off: last position left. A later re-add restarts cleanly with
		// fresh snapshots taken at that instant.
		delete(p.ticks, tick)
	}
}

// AdjustToTick moves the current tick, crossing every initialized tick
// strictly between the old and new position (direction dependent) exactly
// once. Each crossing flips the tick's outside snapshots per mint
// (outside = cumulative - outside) and contributes its signed net liquidity,
// applied to the active counter once at the end. Skipping a crossed tick
// would permanently corrupt range queries bracketing it, so the walk is
// exhaustive over the sparse table.
func (p *PoolState) AdjustToTick(newTick int32) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	old := p.currentTick
	if newTick == old {
		return nil
	}

	up := newTick > old
	var crossed []int32
	for t := range p.ticks {
		if up && t > old && t <= newTick {
			crossed = append(crossed, t)
		} else if !up && t > newTick && t <= old {
			crossed = append(crossed, t)
		}
	}
	sort.Slice(crossed, func(i, j int) bool {
		if up {
			return crossed[i] < crossed[j]
		}
		return crossed[i] > crossed[j]
	})

	netSum := new(big.Int)
	for _, t := range crossed {
		if up {
			netSum.Add(netSum, p.ticks[t].NetLiquidity)
		} else {
			netSum.Sub(netSum, p.ticks[t].NetLiquidity)
		}
	}
	newLiquidity := new(big.Int).Add(p.liquidity, netSum)
	if newLiquidity.Sign() < 0 {
		return ErrLiquidityUnderflow
	}

	for _, t := range crossed {
		info := p.ticks[t]
		for _, mint := range p.mints {
			out, ok := info.Outside[mint]
			if !ok {
				out = new(big.Int)
				info.Outside[mint] = out
			}
			out.Sub(p.cumulative[mint], out)
		}
	}

	p.liquidity = newLiquidity
	p.currentTick = newTick
	return nil
}

// RangeRewardPerUnit answers how much of the mint's cumulative growth
// happened while the current tick was inside [lower, upper), in Q128.
// Returns zero for an empty range. Pure read.
func (p *PoolState) RangeRewardPerUnit(mint string, lower, upper int32) *big.Int {
	if lower >= upper {
		return new(big.Int)
	}
	below := p.outsideAt(lower, mint)
	above := p.outsideAt(upper, mint)

	switch {
	case p.currentTick < lower:
		return below.Sub(below, above)
	case p.currentTick < upper:
		inside := p.Cumulative(mint)
		inside.Sub(inside, above)
		return inside.Sub(inside, below)
	default:
		return above.Sub(above, below)
	}
}

// Sync is the single entry point the orchestration layer drives: fold in the
// amounts streamed since the last touch, then move to the new tick. Reports
// whether the amounts were applied; with zero active liquidity only the tick
// moves and the caller must retain the amounts for a later sync, never drop
// them. A never-initialized pool is initialized and nothing is applied.
func (p *PoolState) Sync(amounts map[string]*big.Int, newTick int32, now int64) (applied bool, err error) {
	if !p.initialized {
		if err := p.Initialize(newTick, now); err != nil {
			return false, err
		}
		return false, nil
	}
	if p.liquidity.Sign() == 0 {
		if err := p.AdjustToTick(newTick); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := p.Accumulate(amounts); err != nil {
		return false, err
	}
	p.lastUpdated = now
	if err := p.AdjustToTick(newTick); err != nil {
		return true, err
	}
	return true, nil
}

// TickCount returns the number of initialized ticks. Test and report helper.
func (p *PoolState) TickCount() int { return len(p.ticks) }

// TickInitialized reports whether tick t currently has nonzero gross liquidity.
func (p *PoolState) TickInitialized(t int32) bool {
	_, ok := p.ticks[t]
	return ok
}

// OutsideSnapshot returns a copy of the outside snapshot for (tick, mint),
// zero if the tick is uninitialized. Test and report helper.
func (p *PoolState) OutsideSnapshot(tick int32, mint string) *big.Int {
	return p.outsideAt(tick, mint)
}

func (p *PoolState) grossAt(tick int32) *big.Int {
	if info, ok := p.ticks[tick]; ok {
		return new(big.Int).Set(info.GrossLiquidity)
	}
	return new(big.Int)
}

func (p *PoolState) outsideAt(tick int32, mint string) *big.Int {
	if info, ok := p.ticks[tick]; ok {
		if out, ok := info.Outside[mint]; ok {
			return new(big.Int).Set(out)
		}
	}
	return new(big.Int)
}
