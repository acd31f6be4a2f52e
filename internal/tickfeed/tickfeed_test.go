package tickfeed

import (
	"context"
	"errors"
	"testing"
)

func TestManual_SetAndGet(t *testing.T) {
	m := NewManual()
	ctx := context.Background()

	if _, err := m.CurrentTick(ctx, "pool"); !errors.Is(err, ErrNoTick) {
		t.Errorf("unseen pool: got %v, want ErrNoTick", err)
	}

	m.SetTick("pool", 42)
	tick, err := m.CurrentTick(ctx, "pool")
	if err != nil {
		t.Fatalf("CurrentTick failed: %v", err)
	}
	if tick != 42 {
		t.Errorf("tick = %d, want 42", tick)
	}

	m.SetTick("pool", -7)
	tick, _ = m.CurrentTick(ctx, "pool")
	if tick != -7 {
		t.Errorf("tick after update = %d, want -7", tick)
	}
}

func TestCache_ApplyAndGet(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	if _, err := c.CurrentTick(ctx, "pool"); !errors.Is(err, ErrNoTick) {
		t.Errorf("unseen pool: got %v, want ErrNoTick", err)
	}

	c.Apply(TickUpdate{PoolID: "pool", Tick: 100, Slot: 10})
	tick, err := c.CurrentTick(ctx, "pool")
	if err != nil {
		t.Fatalf("CurrentTick failed: %v", err)
	}
	if tick != 100 {
		t.Errorf("tick = %d, want 100", tick)
	}
}

func TestCache_IgnoresStaleSlots(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	c.Apply(TickUpdate{PoolID: "pool", Tick: 100, Slot: 20})
	// Replay from before the cached slot must not rewind the tick.
	c.Apply(TickUpdate{PoolID: "pool", Tick: 50, Slot: 10})

	tick, _ := c.CurrentTick(ctx, "pool")
	if tick != 100 {
		t.Errorf("tick = %d, want 100 (stale update applied)", tick)
	}

	// Equal slot is a refresh, not a replay.
	c.Apply(TickUpdate{PoolID: "pool", Tick: 60, Slot: 20})
	tick, _ = c.CurrentTick(ctx, "pool")
	if tick != 60 {
		t.Errorf("tick = %d, want 60", tick)
	}
}

func TestCache_Follow(t *testing.T) {
	c := NewCache()
	ch := make(chan TickUpdate, 3)
	ch <- TickUpdate{PoolID: "a", Tick: 1, Slot: 1}
	ch <- TickUpdate{PoolID: "b", Tick: 2, Slot: 1}
	ch <- TickUpdate{PoolID: "a", Tick: 3, Slot: 2}
	close(ch)

	c.Follow(ch)

	ctx := context.Background()
	if tick, _ := c.CurrentTick(ctx, "a"); tick != 3 {
		t.Errorf("pool a tick = %d, want 3", tick)
	}
	if tick, _ := c.CurrentTick(ctx, "b"); tick != 2 {
		t.Errorf("pool b tick = %d, want 2", tick)
	}
}
