// Package cache is a process-local TTL cache for read-heavy lookups such as
// category trees, product detail and settings. Invalidation is driven by the
// event bus (see subscriber.go) so services never reach into each other's
// key space directly.
package cache

import (
	"strings"
	"sync"
	"time"

	"shopcore.dev/internal/obs"
)

// DefaultTTL applies when Set is called with a non-positive TTL and the
// cache was built without an override.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a concurrency-safe key/value store with per-entry expiry.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL overrides the fallback TTL for Set.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key. Expired entries are removed on read
// and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		obs.CacheMiss()
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Recheck under the write lock: a concurrent Set may have renewed it.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
			obs.CacheEviction(1)
		}
		c.mu.Unlock()
		obs.CacheMiss()
		return nil, false
	}
	obs.CacheHit()
	return e.value, true
}

// Set stores value under key. A non-positive ttl falls back to the cache's
// default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes the exact key and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if ok {
		obs.CacheEviction(1)
	}
	return ok
}

// InvalidatePattern removes every key matching pattern and returns the
// number removed. The only metacharacter is '*', matching any run of
// characters including the empty run; all other characters match literally.
func (c *Cache) InvalidatePattern(pattern string) int {
	c.mu.Lock()
	var removed int
	for key := range c.entries {
		if globMatch(pattern, key) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()
	if removed > 0 {
		obs.CacheEviction(removed)
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	if n > 0 {
		obs.CacheEviction(n)
	}
}

// Len counts entries including ones that have expired but not yet been
// reaped by a read.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// globMatch reports whether key matches pattern, where '*' matches any
// substring. Segments between stars must appear in order; the segment
// before the first star anchors the prefix and the one after the last star
// anchors the suffix.
func globMatch(pattern, key string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == key
	}
	parts := strings.Split(pattern, "*")

	if first := parts[0]; first != "" {
		if !strings.HasPrefix(key, first) {
			return false
		}
		key = key[len(first):]
	}
	if last := parts[len(parts)-1]; last != "" {
		if !strings.HasSuffix(key, last) {
			return false
		}
		key = key[:len(key)-len(last)]
	}
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}
	return true
}
