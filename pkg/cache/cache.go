// Package cache provides a small byte cache with pluggable backends and the
// cached lookups built on it.
//
// Backends: [FileCache] for single-machine CLI runs, [RedisCache] for
// workers sharing one cache, and [NullCache] to disable caching. Cache
// errors are never fatal to callers; a failed Get is treated as a miss.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs per value type.
const (
	TTLCentroid = 7 * 24 * time.Hour
	TTLIsland   = 7 * 24 * time.Hour
)
