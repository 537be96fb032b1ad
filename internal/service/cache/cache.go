package cache

import "time"

// BytesCache stores raw artifact bytes with a TTL. GetBytes reports a miss
// with ok=false rather than an error.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
