package cache

import (
	"sync"
	"time"
)

type item struct {
	value   any
	expires time.Time
}

// TTLCache is an in-process cache with per-entry TTL. Expired entries are
// dropped lazily on read.
type TTLCache struct {
	mu sync.RWMutex
	m  map[string]item
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]item)}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !it.expires.IsZero() && time.Now().After(it.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

// Set stores value under key. A zero ttl means the entry never expires.
func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = item{value: v, expires: expires}
	c.mu.Unlock()
}

// GetBytes implements BytesCache.
func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

// SetBytes implements BytesCache.
func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	c.Set(key, value, ttl)
	return nil
}
