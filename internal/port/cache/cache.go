// Package cache defines the port interface for cache backends.
//
// The tool cache manager stores serialized tool responses through this
// interface; production wiring layers an in-process L1 over a shared
// NATS KV L2. Backend errors are recoverable: the manager degrades to
// a direct fetch when a backend fails.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value cache backends.
// Implementations serialize operations per key; operations on distinct
// keys must not block each other.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
