package accrual

import (
	"errors"
	"math/big"
	"testing"

	"clm-rewards/internal/accumulator"
)

const mint = "RwdMintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// q128 returns v << 128, the per-unit growth that pays exactly v per unit.
func q128(v int64) *big.Int {
	return new(big.Int).Lsh(big.NewInt(v), accumulator.Q128Shift)
}

func rangeNow(v *big.Int) map[string]*big.Int {
	return map[string]*big.Int{mint: v}
}

func TestInitSnapshot_NoRetroactiveRewards(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(q128(100)))

	// No growth since the snapshot: nothing owed.
	if _, err := p.Accrue(big.NewInt(50), rangeNow(q128(100))); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}
	owed := p.Owed()
	if v, ok := owed[mint]; ok && v.Sign() != 0 {
		t.Errorf("owed = %s, want 0", v)
	}
}

func TestAccrue_UsesPreChangeLiquidity(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(q128(0)))

	// 7 per-unit growth at 100 units of coverage owes exactly 700.
	if _, err := p.Accrue(big.NewInt(100), rangeNow(q128(7))); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}
	if got := p.Owed()[mint]; got.Cmp(big.NewInt(700)) != 0 {
		t.Errorf("owed = %s, want 700", got)
	}

	// Snapshot re-anchored: a repeat settle at the same cumulative owes nothing more.
	if _, err := p.Accrue(big.NewInt(100), rangeNow(q128(7))); err != nil {
		t.Fatalf("second Accrue failed: %v", err)
	}
	if got := p.Owed()[mint]; got.Cmp(big.NewInt(700)) != 0 {
		t.Errorf("owed after repeat settle = %s, want 700", got)
	}
}

func TestAccrue_TruncatesTowardZero(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(new(big.Int)))

	// Growth of 1/3 unit per unit of coverage at 1 unit: truncates to 0.
	third := new(big.Int).Lsh(big.NewInt(1), accumulator.Q128Shift)
	third.Quo(third, big.NewInt(3))
	if _, err := p.Accrue(big.NewInt(1), rangeNow(third)); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}
	if v, ok := p.Owed()[mint]; ok && v.Sign() != 0 {
		t.Errorf("owed = %s, want 0 (truncation)", v)
	}
}

func TestAccrue_NegativeGrowthIsFatal(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(q128(10)))

	_, err := p.Accrue(big.NewInt(100), rangeNow(q128(9)))
	if !errors.Is(err, ErrNegativeGrowth) {
		t.Errorf("Expected ErrNegativeGrowth, got %v", err)
	}
}

func TestClaim_Idempotent(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(new(big.Int)))
	if _, err := p.Accrue(big.NewInt(10), rangeNow(q128(5))); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}

	first := p.Claim()
	if got := first[mint]; got == nil || got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("first claim = %v, want 50", got)
	}

	second := p.Claim()
	if len(second) != 0 {
		t.Errorf("second claim = %v, want empty", second)
	}
}

func TestClaim_ZeroBalance(t *testing.T) {
	p := NewPosition()
	out := p.Claim()
	if len(out) != 0 {
		t.Errorf("claim on fresh position = %v, want empty", out)
	}
}

func TestForfeit_DropsBalance(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(new(big.Int)))
	if _, err := p.Accrue(big.NewInt(10), rangeNow(q128(5))); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}
	p.Forfeit()
	if out := p.Claim(); len(out) != 0 {
		t.Errorf("claim after forfeit = %v, want empty", out)
	}
}

func TestPending_DoesNotMutate(t *testing.T) {
	p := NewPosition()
	p.InitSnapshot(rangeNow(new(big.Int)))

	pending := p.Pending(big.NewInt(20), rangeNow(q128(3)))
	if got := pending[mint]; got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("pending = %s, want 60", got)
	}

	// The view settled nothing: a real accrue still pays the full amount.
	if _, err := p.Accrue(big.NewInt(20), rangeNow(q128(3))); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}
	if got := p.Owed()[mint]; got.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("owed = %s, want 60", got)
	}
}
