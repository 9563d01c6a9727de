package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/connecthq/connect-core/internal/domain/profile"
	"github.com/connecthq/connect-core/internal/domain/query"
)

// profileTool is the graph tool that returns one full person record.
const profileTool = "get_person_complete_profile"

// FetchProfiles hydrates the first limit ids from an aggregated result
// into profiles. Fetches run as one parallel group through the cached
// facade; per-record fetch and parse failures are counted and skipped,
// never fatal. Output preserves the input id order.
func (e *PlanExecutor) FetchProfiles(ctx context.Context, ids []query.EntityID, limit int) ([]*profile.Profile, profile.FetchStats) {
	if limit > len(ids) {
		limit = len(ids)
	}
	stats := profile.FetchStats{Requested: limit}
	if limit <= 0 {
		return nil, stats
	}

	slots := make([]*profile.Profile, limit)
	failed := make([]bool, limit)

	var wg sync.WaitGroup
	for i, id := range ids[:limit] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots[i], failed[i] = e.fetchProfile(ctx, id)
		}()
	}
	wg.Wait()

	profiles := make([]*profile.Profile, 0, limit)
	for i, p := range slots {
		switch {
		case p != nil:
			stats.Fetched++
			profiles = append(profiles, p)
		case failed[i]:
			stats.ParseFailed++
		}
	}
	return profiles, stats
}

// fetchProfile retrieves and deserializes one record. The second return
// reports a parse failure (fetch succeeded, no strategy recovered it).
func (e *PlanExecutor) fetchProfile(ctx context.Context, id query.EntityID) (*profile.Profile, bool) {
	if e.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.toolTimeout)
		defer cancel()
	}

	raw, fromCache, err := e.cache.GetOrFetch(ctx, profileTool,
		map[string]any{"person_id": id},
		func(ctx context.Context) ([]byte, error) {
			res, err := e.searcher.Fetch(ctx, id)
			if err != nil {
				return nil, err
			}
			return []byte(res.RawText), nil
		})
	if err != nil {
		slog.Warn("profile fetch failed", "entity_id", id, "error", err)
		return nil, false
	}

	p := ParseProfile(id, string(raw))
	if p == nil {
		if e.metrics != nil {
			e.metrics.ParseFailures.Add(ctx, 1)
		}
		slog.Warn("profile parse failed", "entity_id", id, "from_cache", fromCache)
		return nil, true
	}
	return p, false
}
