// Package natskv implements the cache port using NATS JetStream KV as the
// shared L2 tier of the tool-response cache.
package natskv

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache wraps a NATS JetStream KeyValue store as an L2 cache.
//
// Tool responses carry per-entry TTLs that differ by freshness tier, while
// JetStream KV only expires at the bucket level. Each value is therefore
// stored behind an 8-byte expiry header; expired entries read back as
// misses and are lazily deleted. The bucket MaxAge acts as a backstop for
// the longest tier.
type Cache struct {
	kv jetstream.KeyValue
}

// New creates a NATS KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get retrieves a value from the NATS KV store. Entries past their stored
// expiry are treated as misses.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	value, expired := decode(entry.Value(), time.Now())
	if expired {
		// Best effort; the bucket MaxAge will reap it regardless.
		_ = c.kv.Delete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores a value in the NATS KV store with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.kv.Put(ctx, key, encode(value, time.Now().Add(ttl)))
	return err
}

// Delete removes a value from the NATS KV store.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// encode prepends the expiry as big-endian unix nanoseconds.
func encode(value []byte, expiresAt time.Time) []byte {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expiresAt.UnixNano()))
	copy(buf[8:], value)
	return buf
}

// decode strips the expiry header. Malformed entries (written before the
// header format existed) are reported as expired.
func decode(raw []byte, now time.Time) (value []byte, expired bool) {
	if len(raw) < 8 {
		return nil, true
	}
	expiresAt := time.Unix(0, int64(binary.BigEndian.Uint64(raw))) //nolint:gosec // G115: round-trips our own encoding
	if now.After(expiresAt) {
		return nil, true
	}
	return raw[8:], false
}
