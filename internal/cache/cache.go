package cache

import (
	"sync"
	"time"
)

// entry stores a payload together with the wall-clock time it was stored at.
type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a bounded in-memory key-value store with per-entry expiry.
// Entries older than the TTL are removed lazily on Get; there is no background
// sweeper. When a Put would grow the cache past its capacity, the entry with
// the oldest store time is evicted first. Safe for concurrent use.
type TTLCache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]entry[V]
	now        func() time.Time
}

// New creates a TTLCache with the given TTL and maximum entry count.
// maxEntries <= 0 means unbounded.
func New[V any](ttl time.Duration, maxEntries int) *TTLCache[V] {
	return &TTLCache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]entry[V]),
		now:        time.Now,
	}
}

// Get returns the value stored under key if it has not expired. An entry older
// than the TTL is deleted and reported as a miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, evicting the oldest-stored entry when the cache
// would otherwise exceed its capacity.
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the entry with the oldest store time. Ties are broken
// arbitrarily. Caller must hold mu.
func (c *TTLCache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldest) {
			first = false
			oldestKey = k
			oldest = e.storedAt
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
