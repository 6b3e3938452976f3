package config

import (
	"crypto/sha256"
	"sync"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
)

type cacheKey struct {
	path string
	env  *catalog.Environment
	sum  [sha256.Size]byte
}

// SpecCache keeps validated specifications keyed by file path, environment
// and content hash. Specifications are immutable, so a cached value is
// handed to every caller as is. The zero value is not usable; use
// NewSpecCache.
type SpecCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Specification
	limit   int
}

// NewSpecCache creates a cache holding at most limit entries. Once full, the
// cache is cleared before the next insert. limit <= 0 means unbounded.
func NewSpecCache(limit int) *SpecCache {
	return &SpecCache{entries: make(map[cacheKey]*Specification), limit: limit}
}

// Get returns the specification previously stored for the same inputs.
func (c *SpecCache) Get(path string, env *catalog.Environment, data []byte) (*Specification, bool) {
	key := cacheKey{path: path, env: env, sum: sha256.Sum256(data)}
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.entries[key]
	return spec, ok
}

// Put stores spec for the given inputs.
func (c *SpecCache) Put(path string, env *catalog.Environment, data []byte, spec *Specification) {
	key := cacheKey{path: path, env: env, sum: sha256.Sum256(data)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.entries) >= c.limit {
		if _, ok := c.entries[key]; !ok {
			clear(c.entries)
		}
	}
	c.entries[key] = spec
}

// Len returns the number of cached specifications.
func (c *SpecCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops every entry for path.
func (c *SpecCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.path == path {
			delete(c.entries, key)
		}
	}
}
