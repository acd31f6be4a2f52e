package engine

import (
	"context"
	"math/big"
	"sync"
)

// TokenTransfer hands claimed amounts to the host's transfer primitive. The
// engine computes owed amounts; it never moves value itself.
type TokenTransfer interface {
	// Transfer pays amount of mint to recipient. A failed transfer aborts the
	// claim; the engine restores the owed balance.
	Transfer(ctx context.Context, mint, recipient string, amount *big.Int) error
}

// NopTransfer acknowledges transfers without moving anything. Used by the
// simulator and in tests; it keeps a ledger of what was paid.
type NopTransfer struct {
	mu   sync.Mutex
	paid map[string]*big.Int // key: recipient|mint
}

// NewNopTransfer creates an accepting transfer sink.
func NewNopTransfer() *NopTransfer {
	return &NopTransfer{paid: make(map[string]*big.Int)}
}

// Compile-time interface check.
var _ TokenTransfer = (*NopTransfer)(nil)

// Transfer records the payout and succeeds.
func (t *NopTransfer) Transfer(_ context.Context, mint, recipient string, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := recipient + "|" + mint
	if cur, ok := t.paid[key]; ok {
		cur.Add(cur, amount)
	} else {
		t.paid[key] = new(big.Int).Set(amount)
	}
	return nil
}

// Paid returns the total recorded payout for (recipient, mint).
func (t *NopTransfer) Paid(recipient, mint string) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.paid[recipient+"|"+mint]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}
