// Package accrual converts per-range cumulative reward growth into absolute
// amounts owed to a single position, without double counting or loss across
// repeated settles.
package accrual

import (
	"errors"
	"math/big"

	"clm-rewards/internal/accumulator"
)

// ErrNegativeGrowth is returned when a range cumulative moved backwards
// relative to the position's snapshot. The accumulator guarantees monotone
// growth while the position's boundary ticks stay initialized, so this is an
// invariant violation upstream, never a condition to absorb.
var ErrNegativeGrowth = errors.New("range cumulative below snapshot")

// Position holds the accrual state of one stake: the Q128 range cumulative at
// the last touch per mint, and the accrued-but-unclaimed balance per mint.
type Position struct {
	snapshots map[string]*big.Int
	owed      map[string]*big.Int
}

// NewPosition creates an uninitialized accrual state. InitSnapshot must run
// before the first Accrue so the position does not inherit past growth.
func NewPosition() *Position {
	return &Position{
		snapshots: make(map[string]*big.Int),
		owed:      make(map[string]*big.Int),
	}
}

// InitSnapshot sets the last-touch snapshots without touching the owed
// balance. Used at subscribe time.
func (p *Position) InitSnapshot(rangeNow map[string]*big.Int) {
	for mint, v := range rangeNow {
		p.snapshots[mint] = new(big.Int).Set(v)
	}
}

// Accrue settles growth since the last touch:
// owed += (rangeNow - snapshot) * liquidityBefore >> 128, then re-anchors the
// snapshot. liquidityBefore must be the coverage in effect before any pending
// change; settling with the post-change magnitude is the classic bug in this
// kind of engine, so the caller passes it explicitly. Returns the amounts
// settled by this call (nonzero entries only).
func (p *Position) Accrue(liquidityBefore *big.Int, rangeNow map[string]*big.Int) (map[string]*big.Int, error) {
	for mint, now := range rangeNow {
		snap, ok := p.snapshots[mint]
		if !ok {
			snap = new(big.Int)
		}
		if now.Cmp(snap) < 0 {
			return nil, ErrNegativeGrowth
		}
	}
	settled := make(map[string]*big.Int)
	for mint, now := range rangeNow {
		snap, ok := p.snapshots[mint]
		if !ok {
			snap = new(big.Int)
			p.snapshots[mint] = snap
		}
		delta := new(big.Int).Sub(now, snap)
		if delta.Sign() > 0 && liquidityBefore.Sign() > 0 {
			delta.Mul(delta, liquidityBefore)
			delta.Rsh(delta, accumulator.Q128Shift)
			if delta.Sign() > 0 {
				p.addOwed(mint, delta)
				settled[mint] = new(big.Int).Set(delta)
			}
		}
		snap.Set(now)
	}
	return settled, nil
}

// Claim drains the accrued-unclaimed balance. A second consecutive call
// returns an empty map; it never double-pays.
func (p *Position) Claim() map[string]*big.Int {
	out := make(map[string]*big.Int, len(p.owed))
	for mint, v := range p.owed {
		if v.Sign() == 0 {
			continue
		}
		out[mint] = new(big.Int).Set(v)
		v.SetInt64(0)
	}
	return out
}

// Forfeit drops the accrued-unclaimed balance without paying it.
func (p *Position) Forfeit() {
	for _, v := range p.owed {
		v.SetInt64(0)
	}
}

// Pending returns owed plus the unsettled delta for the given live coverage,
// without mutating anything. Read-only view for queries.
func (p *Position) Pending(liquidity *big.Int, rangeNow map[string]*big.Int) map[string]*big.Int {
	out := make(map[string]*big.Int, len(rangeNow))
	for mint, now := range rangeNow {
		total := new(big.Int)
		if v, ok := p.owed[mint]; ok {
			total.Set(v)
		}
		snap, ok := p.snapshots[mint]
		if !ok {
			snap = new(big.Int)
		}
		delta := new(big.Int).Sub(now, snap)
		if delta.Sign() > 0 && liquidity.Sign() > 0 {
			delta.Mul(delta, liquidity)
			delta.Rsh(delta, accumulator.Q128Shift)
			total.Add(total, delta)
		}
		out[mint] = total
	}
	return out
}

// Owed returns a copy of the accrued-unclaimed balances.
func (p *Position) Owed() map[string]*big.Int {
	out := make(map[string]*big.Int, len(p.owed))
	for mint, v := range p.owed {
		out[mint] = new(big.Int).Set(v)
	}
	return out
}

// RestoreOwed seeds an owed balance, used when rebuilding live state from a
// persisted position checkpoint.
func (p *Position) RestoreOwed(mint string, v *big.Int) {
	p.owed[mint] = new(big.Int).Set(v)
}

func (p *Position) addOwed(mint string, v *big.Int) {
	if cur, ok := p.owed[mint]; ok {
		cur.Add(cur, v)
		return
	}
	p.owed[mint] = new(big.Int).Set(v)
}
