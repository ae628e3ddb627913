// Package strcache caches the descriptive strings of a plugin instance.
// Entries are filled lazily and belong to a generation; Clear starts a new
// generation so that handles obtained earlier report themselves stale.
package strcache

import (
	"sync"
	"sync/atomic"
)

// Key names a cached string.
type Key int

const (
	KeyName Key = iota
	KeyVendor
	KeyVersion
	KeyInfo
	numKeys
)

func (k Key) String() string {
	switch k {
	case KeyName:
		return "name"
	case KeyVendor:
		return "vendor"
	case KeyVersion:
		return "version"
	case KeyInfo:
		return "info"
	}
	return "unknown"
}

// FillFunc produces the value for a key on a cache miss.
type FillFunc func(Key) (string, error)

type slot struct {
	value string
	gen   uint64
	ok    bool
}

// Cache is safe for concurrent use.
type Cache struct {
	fill FillFunc
	gen  atomic.Uint64

	mu    sync.Mutex
	slots [numKeys]slot
}

// New creates a cache backed by fill.
func New(fill FillFunc) *Cache {
	c := &Cache{fill: fill}
	c.gen.Store(1)
	return c
}

// Get returns the cached value, filling it on a miss. Fill errors are not
// cached.
func (c *Cache) Get(k Key) (string, error) {
	r, err := c.Ref(k)
	if err != nil {
		return "", err
	}
	return r.value, nil
}

// Ref returns a handle to the current value.
func (c *Cache) Ref(k Key) (Ref, error) {
	if k < 0 || k >= numKeys {
		return Ref{}, errUnknownKey(k)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.gen.Load()
	s := &c.slots[k]
	if !s.ok || s.gen != gen {
		v, err := c.fill(k)
		if err != nil {
			return Ref{}, err
		}
		*s = slot{value: v, gen: gen, ok: true}
	}
	return Ref{cache: c, key: k, gen: gen, value: s.value}, nil
}

// Clear drops every entry and invalidates outstanding handles.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	c.slots = [numKeys]slot{}
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	return c.gen.Load()
}

// Ref is a handle to a cached string.
type Ref struct {
	cache *Cache
	key   Key
	gen   uint64
	value string
}

// Key returns the key the handle refers to.
func (r Ref) Key() Key { return r.key }

// Value returns the string and whether the handle is still current.
func (r Ref) Value() (string, bool) {
	if r.cache == nil || r.cache.gen.Load() != r.gen {
		return "", false
	}
	return r.value, true
}

// Valid reports whether the handle is still current.
func (r Ref) Valid() bool {
	_, ok := r.Value()
	return ok
}
