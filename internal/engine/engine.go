// Package engine orchestrates the reward pipeline: the epoch scheduler
// computes how much streamed since the last touch, the range accumulator
// folds it into per-unit cumulatives and re-anchors tick snapshots, and
// position accrual settles the delta into amounts owed. Every external event
// (funding, liquidity change, claim, tick movement) enters through here, in
// the fixed order sync pool -> accrue position -> apply coverage delta ->
// optionally claim.
//
// Execution is single-writer per pool: each public operation runs to
// completion before another may touch the same pool, and commits all of its
// effects before returning. The host serializes concurrent callers.
package engine

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"
	"time"

	"clm-rewards/internal/accrual"
	"clm-rewards/internal/accumulator"
	"clm-rewards/internal/domain"
	"clm-rewards/internal/idhash"
	"clm-rewards/internal/schedule"
	"clm-rewards/internal/solkey"
	"clm-rewards/internal/storage"
)

// CoordinateProvider reports the current active tick of a pool, derived from
// live market state.
type CoordinateProvider interface {
	CurrentTick(ctx context.Context, poolID string) (int32, error)
}

// Options configures an Engine. Coordinates, Transfer, and the position store
// are required; the remaining stores are optional recorders.
type Options struct {
	Coordinates CoordinateProvider
	Transfer    TokenTransfer
	BurnPolicy  domain.BurnPolicy

	PositionStore storage.PositionStore
	FundingStore  storage.FundingEventStore
	ClaimStore    storage.ClaimStore
	AccrualStore  storage.AccrualEventStore

	// Clock returns unix seconds; nil means time.Now. Inject a fixed clock
	// for deterministic runs.
	Clock func() int64

	// Logger receives non-fatal recorder failures. nil disables logging.
	Logger *log.Logger
}

// poolRuntime is the live state of one pool.
type poolRuntime struct {
	id       string
	acc      *accumulator.PoolState
	lastSync int64

	// carry holds amounts that streamed while active liquidity was zero.
	// They are folded into the next sync that can apply them; dropping them
	// would break conservation.
	carry map[string]*big.Int
}

// positionRuntime is the live state of one position.
type positionRuntime struct {
	rec domain.Position
	acc *accrual.Position

	liquidity *big.Int
}

// Engine is the single-writer reward engine over a set of pools.
type Engine struct {
	coords     CoordinateProvider
	transfer   TokenTransfer
	burnPolicy domain.BurnPolicy
	scheduler  *schedule.Scheduler
	clock      func() int64
	logger     *log.Logger

	positionStore storage.PositionStore
	fundingStore  storage.FundingEventStore
	claimStore    storage.ClaimStore
	accrualStore  storage.AccrualEventStore

	pools     map[string]*poolRuntime
	positions map[string]*positionRuntime
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Coordinates == nil {
		return nil, fmt.Errorf("engine: coordinate provider is required")
	}
	if opts.Transfer == nil {
		return nil, fmt.Errorf("engine: token transfer is required")
	}
	if opts.PositionStore == nil {
		return nil, fmt.Errorf("engine: position store is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().Unix() }
	}
	policy := opts.BurnPolicy
	if policy == "" {
		policy = domain.BurnClaim
	}
	return &Engine{
		coords:        opts.Coordinates,
		transfer:      opts.Transfer,
		burnPolicy:    policy,
		scheduler:     schedule.New(clock),
		clock:         clock,
		logger:        opts.Logger,
		positionStore: opts.PositionStore,
		fundingStore:  opts.FundingStore,
		claimStore:    opts.ClaimStore,
		accrualStore:  opts.AccrualStore,
		pools:         make(map[string]*poolRuntime),
		positions:     make(map[string]*positionRuntime),
	}, nil
}

// RegisterPool bootstraps reward tracking for a pool at its current tick.
// Registering twice is a programmer error.
func (e *Engine) RegisterPool(poolID string, initialTick int32, rewardMints []string) error {
	if err := solkey.ValidateAddress(poolID); err != nil {
		return fmt.Errorf("pool address: %w", err)
	}
	if _, exists := e.pools[poolID]; exists {
		return ErrPoolExists
	}
	now := e.clock()
	acc := accumulator.NewPoolState()
	if err := acc.Initialize(initialTick, now); err != nil {
		return err
	}
	for _, mint := range rewardMints {
		if err := solkey.ValidateAddress(mint); err != nil {
			return fmt.Errorf("reward mint %s: %w", mint, err)
		}
		acc.RegisterMint(mint)
	}
	e.pools[poolID] = &poolRuntime{
		id:       poolID,
		acc:      acc,
		lastSync: now,
		carry:    make(map[string]*big.Int),
	}
	return nil
}

// Fund schedules amount of mint to stream across the day window two days out
// and records the funding durably. A mint not seen before joins the pool's
// reward registry.
func (e *Engine) Fund(ctx context.Context, poolID, mint string, amount *big.Int) error {
	pr, ok := e.pools[poolID]
	if !ok {
		return ErrPoolNotFound
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := solkey.ValidateAddress(mint); err != nil {
		return fmt.Errorf("reward mint: %w", err)
	}

	pr.acc.RegisterMint(mint)
	day := e.scheduler.Schedule(poolID, mint, amount)

	if e.fundingStore != nil {
		now := e.clock()
		err := e.fundingStore.Insert(ctx, &domain.FundingEvent{
			PoolID:   poolID,
			Mint:     mint,
			Amount:   amount.String(),
			DayIndex: day,
			FundedAt: now,
		})
		if err != nil {
			return fmt.Errorf("record funding: %w", err)
		}
	}
	return nil
}

// SyncPool integrates the stream since the last touch and moves the pool to
// the provider's current tick. Amounts that cannot apply (zero active
// liquidity) are carried, never dropped.
func (e *Engine) SyncPool(ctx context.Context, poolID string) error {
	pr, ok := e.pools[poolID]
	if !ok {
		return ErrPoolNotFound
	}
	return e.syncPool(ctx, pr)
}

func (e *Engine) syncPool(ctx context.Context, pr *poolRuntime) error {
	now := e.clock()
	tick, err := e.coords.CurrentTick(ctx, pr.id)
	if err != nil {
		return fmt.Errorf("current tick for %s: %w", pr.id, err)
	}

	amounts := make(map[string]*big.Int)
	for _, mint := range pr.acc.Mints() {
		amt := e.scheduler.AmountOverWindow(pr.id, mint, pr.lastSync, now)
		if c, ok := pr.carry[mint]; ok {
			amt.Add(amt, c)
		}
		amounts[mint] = amt
	}

	applied, err := pr.acc.Sync(amounts, tick, now)
	if err != nil {
		return err
	}
	if applied {
		pr.carry = make(map[string]*big.Int)
	} else {
		for mint, amt := range amounts {
			if amt.Sign() > 0 {
				pr.carry[mint] = amt
			}
		}
	}
	pr.lastSync = now
	return nil
}

// ReplayFunding reloads recorded funding events into the scheduler without
// re-recording them, typically after RestorePositions at daemon startup.
// Events targeting a day before fromDay are skipped; their stream windows can
// no longer overlap any future sync. Returns the number of events replayed.
func (e *Engine) ReplayFunding(ctx context.Context, poolID string, fromDay int64) (int, error) {
	pr, ok := e.pools[poolID]
	if !ok {
		return 0, ErrPoolNotFound
	}
	if e.fundingStore == nil {
		return 0, nil
	}

	events, err := e.fundingStore.GetByPool(ctx, poolID)
	if err != nil {
		return 0, fmt.Errorf("load funding events for %s: %w", poolID, err)
	}

	replayed := 0
	for _, ev := range events {
		if ev.DayIndex < fromDay {
			continue
		}
		amount, ok := new(big.Int).SetString(ev.Amount, 10)
		if !ok {
			return replayed, fmt.Errorf("funding event %d: malformed amount %q", ev.ID, ev.Amount)
		}
		pr.acc.RegisterMint(ev.Mint)
		e.scheduler.ScheduleAt(poolID, ev.Mint, ev.DayIndex, amount)
		replayed++
	}
	return replayed, nil
}

// RestorePositions reloads persisted positions of a pool into live state,
// typically at daemon startup. Owed balances come from the checkpoint;
// snapshots re-anchor at the current range cumulative, so growth between the
// last checkpoint and the restore is not re-credited. Returns the number of
// positions restored.
func (e *Engine) RestorePositions(ctx context.Context, poolID string) (int, error) {
	pr, ok := e.pools[poolID]
	if !ok {
		return 0, ErrPoolNotFound
	}

	records, err := e.positionStore.GetByPool(ctx, poolID)
	if err != nil {
		return 0, fmt.Errorf("load positions for %s: %w", poolID, err)
	}

	restored := 0
	for _, rec := range records {
		if _, exists := e.positions[rec.PositionID]; exists {
			continue
		}
		liquidity, ok := new(big.Int).SetString(rec.Liquidity, 10)
		if !ok {
			return restored, fmt.Errorf("position %s: malformed liquidity %q", rec.PositionID, rec.Liquidity)
		}

		acc := accrual.NewPosition()
		for mint, amount := range rec.Owed {
			owed, ok := new(big.Int).SetString(amount, 10)
			if !ok {
				return restored, fmt.Errorf("position %s: malformed owed %q for %s", rec.PositionID, amount, mint)
			}
			acc.RestoreOwed(mint, owed)
		}
		acc.InitSnapshot(e.rangeNow(pr, rec.TickLower, rec.TickUpper))

		if liquidity.Sign() > 0 {
			if err := pr.acc.ModifyLiquidity(rec.TickLower, rec.TickUpper, liquidity); err != nil {
				return restored, fmt.Errorf("position %s: rebuild coverage: %w", rec.PositionID, err)
			}
		}
		e.positions[rec.PositionID] = &positionRuntime{
			rec:       *rec,
			acc:       acc,
			liquidity: liquidity,
		}
		restored++
	}
	return restored, nil
}

// Subscribe creates a position covering [tickLower, tickUpper) with the given
// liquidity. The snapshot is taken after the sync, so the position inherits
// no past growth.
func (e *Engine) Subscribe(ctx context.Context, owner, poolID string, tickLower, tickUpper int32, liquidity *big.Int) (string, error) {
	pr, ok := e.pools[poolID]
	if !ok {
		return "", ErrPoolNotFound
	}
	if err := solkey.ValidateAddress(owner); err != nil {
		return "", fmt.Errorf("owner address: %w", err)
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return "", ErrInvalidLiquidity
	}
	if tickLower >= tickUpper {
		return "", accumulator.ErrInvalidTickRange
	}

	positionID := idhash.ComputePositionID(owner, poolID, tickLower, tickUpper)
	if _, exists := e.positions[positionID]; exists {
		return "", ErrPositionExists
	}

	if err := e.syncPool(ctx, pr); err != nil {
		return "", err
	}

	acc := accrual.NewPosition()
	acc.InitSnapshot(e.rangeNow(pr, tickLower, tickUpper))
	if err := pr.acc.ModifyLiquidity(tickLower, tickUpper, liquidity); err != nil {
		return "", err
	}

	now := e.clock()
	rt := &positionRuntime{
		rec: domain.Position{
			PositionID: positionID,
			Owner:      owner,
			PoolID:     poolID,
			TickLower:  tickLower,
			TickUpper:  tickUpper,
			Liquidity:  liquidity.String(),
			Owed:       map[string]string{},
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		acc:       acc,
		liquidity: new(big.Int).Set(liquidity),
	}
	if err := e.positionStore.Insert(ctx, &rt.rec); err != nil {
		// Roll the in-memory coverage back so nothing is partially applied.
		neg := new(big.Int).Neg(liquidity)
		if undoErr := pr.acc.ModifyLiquidity(tickLower, tickUpper, neg); undoErr != nil {
			return "", fmt.Errorf("persist position: %v (rollback failed: %w)", err, undoErr)
		}
		return "", fmt.Errorf("persist position: %w", err)
	}
	e.positions[positionID] = rt
	return positionID, nil
}

// ModifyPosition changes a position's coverage by delta (positive or
// negative). Accrual always settles against the pre-change liquidity.
func (e *Engine) ModifyPosition(ctx context.Context, positionID string, delta *big.Int) error {
	rt, ok := e.positions[positionID]
	if !ok {
		return ErrPositionNotFound
	}
	pr := e.pools[rt.rec.PoolID]

	if delta != nil && delta.Sign() < 0 {
		newLiq := new(big.Int).Add(rt.liquidity, delta)
		if newLiq.Sign() < 0 {
			return accumulator.ErrLiquidityUnderflow
		}
	}

	if err := e.syncPool(ctx, pr); err != nil {
		return err
	}
	if err := e.settle(ctx, pr, rt); err != nil {
		return err
	}
	if delta == nil || delta.Sign() == 0 {
		return e.checkpoint(ctx, rt)
	}
	if err := pr.acc.ModifyLiquidity(rt.rec.TickLower, rt.rec.TickUpper, delta); err != nil {
		return err
	}
	rt.liquidity.Add(rt.liquidity, delta)
	return e.checkpoint(ctx, rt)
}

// Claim settles and pays out the position's accrued balance. Claiming a zero
// balance returns an empty map without error.
func (e *Engine) Claim(ctx context.Context, positionID string) (map[string]*big.Int, error) {
	rt, ok := e.positions[positionID]
	if !ok {
		return nil, ErrPositionNotFound
	}
	pr := e.pools[rt.rec.PoolID]

	if err := e.syncPool(ctx, pr); err != nil {
		return nil, err
	}
	if err := e.settle(ctx, pr, rt); err != nil {
		return nil, err
	}
	claimed, err := e.payout(ctx, rt)
	if err != nil {
		// Persist the partial drain: balances already paid out must not
		// resurrect from the durable record on a restart.
		if cpErr := e.checkpoint(ctx, rt); cpErr != nil && e.logger != nil {
			e.logger.Printf("checkpoint after failed payout for %s: %v", rt.rec.PositionID, cpErr)
		}
		return nil, err
	}
	return claimed, e.checkpoint(ctx, rt)
}

// Unsubscribe removes the position's coverage entirely, settles, pays out,
// and clears it. Returns the claimed amounts.
func (e *Engine) Unsubscribe(ctx context.Context, positionID string) (map[string]*big.Int, error) {
	return e.remove(ctx, positionID, domain.BurnClaim)
}

// Burn clears the position under the engine's burn policy: claim-then-clear
// or forfeit-then-clear.
func (e *Engine) Burn(ctx context.Context, positionID string) error {
	_, err := e.remove(ctx, positionID, e.burnPolicy)
	return err
}

func (e *Engine) remove(ctx context.Context, positionID string, policy domain.BurnPolicy) (map[string]*big.Int, error) {
	rt, ok := e.positions[positionID]
	if !ok {
		return nil, ErrPositionNotFound
	}
	pr := e.pools[rt.rec.PoolID]

	if err := e.syncPool(ctx, pr); err != nil {
		return nil, err
	}
	if err := e.settle(ctx, pr, rt); err != nil {
		return nil, err
	}
	if rt.liquidity.Sign() > 0 {
		neg := new(big.Int).Neg(rt.liquidity)
		if err := pr.acc.ModifyLiquidity(rt.rec.TickLower, rt.rec.TickUpper, neg); err != nil {
			return nil, err
		}
		rt.liquidity.SetInt64(0)
	}

	var claimed map[string]*big.Int
	if policy == domain.BurnForfeit {
		rt.acc.Forfeit()
		claimed = map[string]*big.Int{}
	} else {
		var err error
		claimed, err = e.payout(ctx, rt)
		if err != nil {
			if cpErr := e.checkpoint(ctx, rt); cpErr != nil && e.logger != nil {
				e.logger.Printf("checkpoint after failed payout for %s: %v", rt.rec.PositionID, cpErr)
			}
			return nil, err
		}
	}

	if err := e.positionStore.Delete(ctx, positionID); err != nil {
		return nil, fmt.Errorf("delete position: %w", err)
	}
	delete(e.positions, positionID)
	return claimed, nil
}

// settle accrues the position against the freshly synced pool and emits
// accrual analytics. Always runs with the pre-change liquidity.
func (e *Engine) settle(ctx context.Context, pr *poolRuntime, rt *positionRuntime) error {
	rangeNow := e.rangeNow(pr, rt.rec.TickLower, rt.rec.TickUpper)
	if rt.liquidity.Sign() == 0 {
		// Nothing can accrue without coverage, and once the position's last
		// boundary flipped off its outside snapshots were cleared, so the
		// range cumulative may read below the stored snapshot. Re-anchor
		// instead of settling; the owed balance stays claimable.
		rt.acc.InitSnapshot(rangeNow)
		return nil
	}
	settled, err := rt.acc.Accrue(rt.liquidity, rangeNow)
	if err != nil {
		return err
	}
	if e.accrualStore == nil || len(settled) == 0 {
		return nil
	}

	now := e.clock()
	events := make([]*domain.AccrualEvent, 0, len(settled))
	for mint, amt := range settled {
		events = append(events, &domain.AccrualEvent{
			PositionID: rt.rec.PositionID,
			PoolID:     pr.id,
			Mint:       mint,
			Amount:     amt.String(),
			Tick:       pr.acc.CurrentTick(),
			Timestamp:  now,
		})
	}
	if err := e.accrualStore.InsertBulk(ctx, events); err != nil {
		// Analytics only; the settle itself is already committed.
		if e.logger != nil {
			e.logger.Printf("accrual analytics insert failed for %s: %v", rt.rec.PositionID, err)
		}
	}
	return nil
}

// payout drains the owed balance through the transfer primitive and records
// claims. A failed transfer restores the still-unpaid balances and aborts;
// amounts already transferred stay drained so a retry cannot pay them twice.
func (e *Engine) payout(ctx context.Context, rt *positionRuntime) (map[string]*big.Int, error) {
	claimed := rt.acc.Claim()
	mints := make([]string, 0, len(claimed))
	for mint := range claimed {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	now := e.clock()
	for i, mint := range mints {
		amt := claimed[mint]
		if err := e.transfer.Transfer(ctx, mint, rt.rec.Owner, amt); err != nil {
			for _, m := range mints[i:] {
				rt.acc.RestoreOwed(m, claimed[m])
			}
			return nil, fmt.Errorf("transfer %s to %s: %w", mint, rt.rec.Owner, err)
		}
		if e.claimStore != nil {
			insertErr := e.claimStore.Insert(ctx, &domain.ClaimRecord{
				PositionID: rt.rec.PositionID,
				PoolID:     rt.rec.PoolID,
				Owner:      rt.rec.Owner,
				Mint:       mint,
				Amount:     amt.String(),
				ClaimedAt:  now,
			})
			if insertErr != nil && e.logger != nil {
				e.logger.Printf("claim record insert failed for %s: %v", rt.rec.PositionID, insertErr)
			}
		}
	}
	return claimed, nil
}

// checkpoint writes the position's current liquidity and owed balances back
// to the durable store.
func (e *Engine) checkpoint(ctx context.Context, rt *positionRuntime) error {
	rt.rec.Liquidity = rt.liquidity.String()
	owed := rt.acc.Owed()
	rt.rec.Owed = make(map[string]string, len(owed))
	for mint, v := range owed {
		rt.rec.Owed[mint] = v.String()
	}
	rt.rec.UpdatedAt = e.clock()
	if err := e.positionStore.Update(ctx, &rt.rec); err != nil {
		return fmt.Errorf("checkpoint position: %w", err)
	}
	return nil
}

// rangeNow reads the per-mint range cumulative for [lower, upper).
func (e *Engine) rangeNow(pr *poolRuntime, lower, upper int32) map[string]*big.Int {
	out := make(map[string]*big.Int)
	for _, mint := range pr.acc.Mints() {
		out[mint] = pr.acc.RangeRewardPerUnit(mint, lower, upper)
	}
	return out
}
