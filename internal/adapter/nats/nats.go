// Package nats manages the NATS JetStream connection backing the shared
// L2 tool-response cache.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sethvargo/go-retry"
)

// Conn holds the NATS connection and its JetStream context.
type Conn struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS, retrying with exponential
// backoff so the service survives NATS starting after it does.
func Connect(ctx context.Context, url string) (*Conn, error) {
	var nc *nats.Conn

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		var err error
		nc, err = nats.Connect(url)
		if err != nil {
			slog.Warn("nats connect failed, retrying", "url", url, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	slog.Info("nats connected", "url", url)
	return &Conn{nc: nc, js: js}, nil
}

// EnsureKV creates or binds the KV bucket used as the L2 cache.
// maxAge is the bucket-level expiry backstop; per-entry TTLs are enforced
// by the natskv adapter on top of it.
func (c *Conn) EnsureKV(ctx context.Context, bucket string, maxAge time.Duration) (jetstream.KeyValue, error) {
	kv, err := c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "shared tool-response cache",
		TTL:         maxAge,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("jetstream kv %s: %w", bucket, err)
	}

	slog.Info("nats kv bucket ready", "bucket", bucket, "max_age", maxAge)
	return kv, nil
}

// Close shuts down the NATS connection.
func (c *Conn) Close() error {
	c.nc.Close()
	return nil
}
