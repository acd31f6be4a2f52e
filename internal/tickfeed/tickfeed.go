// Package tickfeed supplies pool tick coordinates to the reward engine. The
// engine pulls through CoordinateProvider; live deployments push updates over
// a WebSocket feed into a Cache, while simulations and tests drive a Manual
// provider directly.
package tickfeed

import (
	"context"
	"errors"
	"sync"
)

// ErrNoTick is returned when no coordinate has been observed for a pool yet.
var ErrNoTick = errors.New("no tick observed for pool")

// TickUpdate is one observed pool coordinate.
type TickUpdate struct {
	PoolID string
	Tick   int32
	Slot   int64
}

// Manual is a hand-driven coordinate provider for simulations and tests.
type Manual struct {
	mu    sync.RWMutex
	ticks map[string]int32
}

// NewManual creates an empty Manual provider.
func NewManual() *Manual {
	return &Manual{ticks: make(map[string]int32)}
}

// SetTick records the current tick for a pool.
func (m *Manual) SetTick(poolID string, tick int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[poolID] = tick
}

// CurrentTick returns the last tick set for the pool.
func (m *Manual) CurrentTick(_ context.Context, poolID string) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tick, ok := m.ticks[poolID]
	if !ok {
		return 0, ErrNoTick
	}
	return tick, nil
}

// Cache holds the latest observed tick per pool and serves it to the engine.
// Writers apply feed updates; readers see the most recent coordinate.
type Cache struct {
	mu    sync.RWMutex
	ticks map[string]int32
	slots map[string]int64
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		ticks: make(map[string]int32),
		slots: make(map[string]int64),
	}
}

// Apply records an update. Stale updates (older slot than the cached one)
// are ignored; feeds can replay after a reconnect.
func (c *Cache) Apply(u TickUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.slots[u.PoolID]; ok && u.Slot < last {
		return
	}
	c.ticks[u.PoolID] = u.Tick
	c.slots[u.PoolID] = u.Slot
}

// CurrentTick returns the latest cached tick for the pool.
func (c *Cache) CurrentTick(_ context.Context, poolID string) (int32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tick, ok := c.ticks[poolID]
	if !ok {
		return 0, ErrNoTick
	}
	return tick, nil
}

// Follow consumes updates until the channel closes. Run it in its own
// goroutine alongside the feed.
func (c *Cache) Follow(ch <-chan TickUpdate) {
	for u := range ch {
		c.Apply(u)
	}
}
