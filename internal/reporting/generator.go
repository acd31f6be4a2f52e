package reporting

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"clm-rewards/internal/storage"
)

// Generator produces pool reward reports from stored data.
type Generator struct {
	fundingStore  storage.FundingEventStore
	claimStore    storage.ClaimStore
	positionStore storage.PositionStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	fundingStore storage.FundingEventStore,
	claimStore storage.ClaimStore,
	positionStore storage.PositionStore,
) *Generator {
	return &Generator{
		fundingStore:  fundingStore,
		claimStore:    claimStore,
		positionStore: positionStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the distribution report for one pool.
func (g *Generator) Generate(ctx context.Context, poolID string) (*PoolReport, error) {
	fundings, err := g.fundingStore.GetByPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load funding events: %w", err)
	}
	claims, err := g.claimStore.GetByPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	positions, err := g.positionStore.GetByPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	funded := make(map[string]*big.Int)
	claimed := make(map[string]*big.Int)
	outstanding := make(map[string]*big.Int)

	for _, f := range fundings {
		if err := addDecimalString(funded, f.Mint, f.Amount); err != nil {
			return nil, fmt.Errorf("funding event %d: %w", f.ID, err)
		}
	}
	for _, c := range claims {
		if err := addDecimalString(claimed, c.Mint, c.Amount); err != nil {
			return nil, fmt.Errorf("claim %d: %w", c.ID, err)
		}
	}
	for _, p := range positions {
		for mint, amount := range p.Owed {
			if err := addDecimalString(outstanding, mint, amount); err != nil {
				return nil, fmt.Errorf("position %s owed: %w", p.PositionID, err)
			}
		}
	}

	mints := make(map[string]struct{})
	for m := range funded {
		mints[m] = struct{}{}
	}
	for m := range claimed {
		mints[m] = struct{}{}
	}
	for m := range outstanding {
		mints[m] = struct{}{}
	}

	report := &PoolReport{
		PoolID:        poolID,
		GeneratedAt:   g.now(),
		FundingEvents: len(fundings),
		Claims:        len(claims),
		LivePositions: len(positions),
		Conserved:     true,
	}

	names := make([]string, 0, len(mints))
	for m := range mints {
		names = append(names, m)
	}
	sort.Strings(names)

	for _, mint := range names {
		f := sumOrZero(funded, mint)
		c := sumOrZero(claimed, mint)
		o := sumOrZero(outstanding, mint)

		residual := new(big.Int).Sub(f, c)
		residual.Sub(residual, o)
		if residual.Sign() < 0 {
			report.Conserved = false
		}

		report.Mints = append(report.Mints, MintSummary{
			Mint:             mint,
			TotalFunded:      f.String(),
			TotalClaimed:     c.String(),
			TotalOutstanding: o.String(),
			Residual:         residual.String(),
			ClaimedShare:     claimedShare(f, c),
		})
	}

	return report, nil
}

// addDecimalString parses amount and adds it into acc[mint].
func addDecimalString(acc map[string]*big.Int, mint, amount string) error {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("malformed amount %q", amount)
	}
	if cur, ok := acc[mint]; ok {
		cur.Add(cur, v)
	} else {
		acc[mint] = v
	}
	return nil
}

func sumOrZero(acc map[string]*big.Int, mint string) *big.Int {
	if v, ok := acc[mint]; ok {
		return v
	}
	return new(big.Int)
}

// claimedShare formats claimed/funded as a percentage with four decimal
// places. Token amounts stay exact big integers everywhere else; the share is
// presentation only, so decimal arithmetic is fine here.
func claimedShare(funded, claimed *big.Int) string {
	if funded.Sign() == 0 {
		return "0"
	}
	f := decimal.NewFromBigInt(funded, 0)
	c := decimal.NewFromBigInt(claimed, 0)
	return c.Div(f).Mul(decimal.NewFromInt(100)).StringFixed(4)
}
