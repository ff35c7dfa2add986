package ttlcache

import (
	"context"
	"time"
)

// Evictor is satisfied by *Cache[K, V] for any K, V — Go generics can't
// express that directly on a method value, so EvictionLoop takes the
// Evict closure instead of the cache itself.
type Evictor func() int

// EvictionLoop runs evict on interval until ctx is cancelled, mirroring the
// teacher's background-ticker-loop shape (immediate run, then on each
// tick, clean shutdown via context cancellation).
func EvictionLoop(ctx context.Context, interval time.Duration, evict Evictor) {
	evict()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evict()
		}
	}
}
