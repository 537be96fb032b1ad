package cache

import "time"

// LayeredBytesCache reads through a fast local cache into a shared one.
// Local hits never touch the shared layer; shared hits are promoted with the
// local TTL.
type LayeredBytesCache struct {
	local    BytesCache
	shared   BytesCache
	localTTL time.Duration
}

func NewLayeredBytesCache(local, shared BytesCache, localTTL time.Duration) *LayeredBytesCache {
	return &LayeredBytesCache{local: local, shared: shared, localTTL: localTTL}
}

func (c *LayeredBytesCache) GetBytes(key string) ([]byte, bool, error) {
	if b, ok, err := c.local.GetBytes(key); err == nil && ok {
		return b, true, nil
	}
	b, ok, err := c.shared.GetBytes(key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.local.SetBytes(key, b, c.localTTL)
	return b, true, nil
}

func (c *LayeredBytesCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	_ = c.local.SetBytes(key, value, c.localTTL)
	return c.shared.SetBytes(key, value, ttl)
}
