package health

import (
	"context"
	"sync"
	"time"

	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/store"
)

// snapshotCache is a read-mostly, short-TTL local cache in front of the
// store's shared HealthSnapshot — adapted from the teacher's
// CachingKeyResolver (same double-checked-locking shape, re-keyed from
// ed25519 public keys by kid to HealthSnapshots by ProcessorId). It exists
// so every dispatch attempt doesn't round-trip to the store just to read a
// value that the oracle itself only refreshes once per probe interval.
type snapshotCache struct {
	mu    sync.RWMutex
	cache map[model.ProcessorID]model.HealthSnapshot
	until map[model.ProcessorID]time.Time
	ttl   time.Duration
	src   store.Store
}

func newSnapshotCache(ttl time.Duration, src store.Store) *snapshotCache {
	return &snapshotCache{
		cache: make(map[model.ProcessorID]model.HealthSnapshot),
		until: make(map[model.ProcessorID]time.Time),
		ttl:   ttl,
		src:   src,
	}
}

// get returns the freshest snapshot known for processor. A store read
// error or a never-observed processor yields the zero HealthSnapshot
// (not failing, 0 response time), which choose() treats as healthy-and-fast —
// a deliberate default-processor bias until the oracle's first probe lands.
func (c *snapshotCache) get(ctx context.Context, processor model.ProcessorID) model.HealthSnapshot {
	c.mu.RLock()
	snap, found := c.cache[processor]
	until, untilFound := c.until[processor]
	c.mu.RUnlock()

	if found && untilFound && time.Now().Before(until) {
		return snap
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	snap, found = c.cache[processor]
	until, untilFound = c.until[processor]
	if found && untilFound && time.Now().Before(until) {
		return snap
	}

	fresh, ok, err := c.src.GetHealth(ctx, processor)
	if err != nil || !ok {
		return model.HealthSnapshot{}
	}

	c.cache[processor] = fresh
	c.until[processor] = time.Now().Add(c.ttl)
	return fresh
}
