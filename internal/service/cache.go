package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/connecthq/connect-core/internal/port/cache"
)

// FetchFunc produces the value for a cache key on miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// defaultFetchTimeout bounds a population fetch once it is detached
// from the caller that triggered it.
const defaultFetchTimeout = 30 * time.Second

// ToolCache wraps the tiered cache backend with per-tool TTL tiers,
// single-flight miss coalescing, and bypass-on-error degradation.
// Backend failures are logged and counted, never surfaced: the call
// degrades to a direct fetch.
type ToolCache struct {
	backend      cache.Cache
	ttls         TTLs
	flight       singleflight.Group
	fetchTimeout time.Duration

	mu          sync.Mutex
	hits        int64
	misses      int64
	bypasses    int64
	invocations map[string]int64 // backend fetches per tool
}

// NewToolCache creates a tool cache over the given backend.
func NewToolCache(backend cache.Cache, ttls TTLs) *ToolCache {
	return &ToolCache{
		backend:      backend,
		ttls:         ttls,
		fetchTimeout: defaultFetchTimeout,
		invocations:  make(map[string]int64),
	}
}

// SetFetchTimeout bounds how long a detached population fetch may run
// after every requester has gone away. Zero disables the bound.
func (c *ToolCache) SetFetchTimeout(d time.Duration) {
	c.fetchTimeout = d
}

// Key returns the deterministic cache key for a (tool, params) pair.
// Params are canonicalized through encoding/json, which marshals map
// keys in sorted order, so equal param maps always collide and distinct
// ones practically never do.
func Key(tool string, params map[string]any) string {
	canonical, err := json.Marshal(params)
	if err != nil {
		// Params come from JSON in the first place; this is unreachable
		// for real plans but must not panic.
		canonical = fmt.Appendf(nil, "%v", params)
	}
	sum := sha256.Sum256(canonical)
	return tool + ":" + hex.EncodeToString(sum[:])
}

// GetOrFetch returns the cached value for (tool, params), fetching and
// populating on miss. Concurrent misses for the same key coalesce into
// one backend fetch. Uncacheable tools always fetch directly.
func (c *ToolCache) GetOrFetch(ctx context.Context, tool string, params map[string]any, fetch FetchFunc) (data []byte, fromCache bool, err error) {
	tier := TierFor(tool)
	if tier == TierNone {
		c.countInvocation(tool)
		data, err = fetch(ctx)
		return data, false, err
	}

	key := Key(tool, params)

	val, found, err := c.backend.Get(ctx, key)
	if err != nil {
		slog.Warn("cache get failed, bypassing", "tool", tool, "error", err)
		c.countBypass()
		c.countInvocation(tool)
		data, err = fetch(ctx)
		return data, false, err
	}
	if found {
		c.countHit()
		return val, true, nil
	}
	c.countMiss()

	// The fetch runs detached from the caller that triggered it: a
	// population already in flight completes and writes the cache even
	// when that requester gives up. Each waiter only waits as long as
	// its own context allows.
	ch := c.flight.DoChan(key, func() (any, error) {
		c.countInvocation(tool)

		fetchCtx := context.WithoutCancel(ctx)
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
			defer cancel()
		}

		fetched, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		if err := c.backend.Set(fetchCtx, key, fetched, c.ttls.For(tier)); err != nil {
			slog.Warn("cache set failed", "tool", tool, "error", err)
			c.countBypass()
		}
		return fetched, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), res.Shared, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate removes the cached value for (tool, params).
func (c *ToolCache) Invalidate(ctx context.Context, tool string, params map[string]any) error {
	return c.backend.Delete(ctx, Key(tool, params))
}

// CacheStats is a read-only snapshot of cache behavior.
type CacheStats struct {
	Hits              int64            `json:"hits"`
	Misses            int64            `json:"misses"`
	Bypasses          int64            `json:"bypasses"`
	HitRate           float64          `json:"hit_rate"`
	InvocationsByTool map[string]int64 `json:"invocations_by_tool"`
}

// Stats returns a consistent snapshot of the cache counters.
func (c *ToolCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{
		Hits:              c.hits,
		Misses:            c.misses,
		Bypasses:          c.bypasses,
		InvocationsByTool: make(map[string]int64, len(c.invocations)),
	}
	for tool, n := range c.invocations {
		s.InvocationsByTool[tool] = n
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *ToolCache) countHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *ToolCache) countMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

func (c *ToolCache) countBypass() {
	c.mu.Lock()
	c.bypasses++
	c.mu.Unlock()
}

func (c *ToolCache) countInvocation(tool string) {
	c.mu.Lock()
	c.invocations[tool]++
	c.mu.Unlock()
}
