// Package ttlcache implements the time-indexed map with periodic
// reaping described in spec.md §4.2: fetch/update against a
// liveness predicate, with a reaper goroutine that rebuilds the map
// to physically drop expired entries.
//
// Ported from original_source/plugins/title_plugin.py's UrlCache,
// backed by github.com/puzpuzpuz/xsync's lock-striped map the way
// bgpfix-bgpipe's stages/limit.go uses it for its session/origin/block
// tables.
package ttlcache

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// entry is spec.md §3's CacheEntry.
type entry[V any] struct {
	value     V
	timestamp time.Time
}

// Cache is a generic TTL map. Zero value is not usable; use New.
type Cache[V any] struct {
	expiration time.Duration
	now        func() time.Time
	db         *xsync.MapOf[string, entry[V]]

	mu      sync.Mutex
	cancel  func()
	running bool
}

// New creates a cache with the given expiration. The reaper is not
// started until Enable is called.
func New[V any](expiration time.Duration) *Cache[V] {
	return &Cache[V]{
		expiration: expiration,
		now:        time.Now,
		db:         xsync.NewMapOf[string, entry[V]](),
	}
}

// Fetch returns the cached value for key if it was updated less than
// expiration ago; otherwise it reports absent, regardless of whether
// the reaper has run yet (spec.md invariant 3).
func (c *Cache[V]) Fetch(key string) (value V, ok bool) {
	e, found := c.db.Load(key)
	if !found {
		return value, false
	}
	if c.now().Sub(e.timestamp) >= c.expiration {
		return value, false
	}
	return e.value, true
}

// Has reports whether key has a live entry, without returning the
// value — used for the negative cache short-circuit in spec.md §4.3.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Fetch(key)
	return ok
}

// Update stamps key with value at the current time.
func (c *Cache[V]) Update(key string, value V) {
	c.db.Store(key, entry[V]{value: value, timestamp: c.now()})
}

// Enable starts the reaper if it is not already running. Idempotent.
func (c *Cache[V]) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	done := make(chan struct{})
	c.cancel = sync.OnceFunc(func() { close(done) })
	c.running = true

	go func() {
		ticker := time.NewTicker(c.expiration)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.reap()
			}
		}
	}()
}

// Disable stops the reaper. Idempotent.
func (c *Cache[V]) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.cancel()
	c.running = false
}

// reap rebuilds the map to contain only non-expired entries. Fetch's
// correctness does not depend on this ever running; it is memory
// hygiene only (spec.md §4.2).
func (c *Cache[V]) reap() {
	now := c.now()
	c.db.Range(func(key string, e entry[V]) bool {
		if now.Sub(e.timestamp) >= c.expiration {
			c.db.Delete(key)
		}
		return true
	})
}
