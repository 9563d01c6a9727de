package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/connecthq/connect-core/internal/adapter/otel"
	"github.com/connecthq/connect-core/internal/adapter/ws"
	"github.com/connecthq/connect-core/internal/domain/query"
	"github.com/connecthq/connect-core/internal/port/broadcast"
	"github.com/connecthq/connect-core/internal/port/graphsearch"
)

// PlanExecutor runs execution plans priority group by priority group.
// Within a group, sub-queries run in parallel; group N+1 never starts
// before every invocation in group N has settled. Per-invocation
// failures and timeouts are recovered into their ToolOutcome and never
// abort siblings; only a malformed or empty plan is fatal.
type PlanExecutor struct {
	searcher    graphsearch.Searcher
	cache       *ToolCache
	broadcaster broadcast.Broadcaster
	metrics     *otel.Metrics
	toolTimeout time.Duration

	statsMu      sync.Mutex
	plansRun     int64
	errorsByKind map[string]int64
}

// NewPlanExecutor creates an executor over the given searcher and cache.
// broadcaster and metrics may be nil.
func NewPlanExecutor(searcher graphsearch.Searcher, cache *ToolCache, broadcaster broadcast.Broadcaster, metrics *otel.Metrics, toolTimeout time.Duration) *PlanExecutor {
	return &PlanExecutor{
		searcher:     searcher,
		cache:        cache,
		broadcaster:  broadcaster,
		metrics:      metrics,
		toolTimeout:  toolTimeout,
		errorsByKind: make(map[string]int64),
	}
}

// Execute validates the plan, runs its priority groups, and aggregates
// the outcomes. The caller's context bounds the whole plan: on expiry,
// settled outcomes are still aggregated and pending invocations are
// recorded as timed out.
func (e *PlanExecutor) Execute(ctx context.Context, plan *query.ExecutionPlan) (*query.AggregatedResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	priorityGroups := plan.PriorityGroups()

	ctx, span := otel.StartPlanSpan(ctx, plan.ID, string(plan.Strategy), len(plan.SubQueries))
	defer span.End()

	e.publish(ctx, ws.EventPlanStarted, ws.PlanStartedEvent{
		PlanID:     plan.ID,
		Question:   plan.Question,
		Strategy:   string(plan.Strategy),
		SubQueries: len(plan.SubQueries),
		Groups:     len(priorityGroups),
	})

	var (
		groups [][]*query.ToolOutcome
		errs   []query.OutcomeError
	)

	for _, group := range priorityGroups {
		e.publish(ctx, ws.EventGroupStarted, ws.GroupStartedEvent{
			PlanID:   plan.ID,
			Priority: group[0].Priority,
			Size:     len(group),
		})

		outcomes := e.runGroup(ctx, plan.ID, group)
		groups = append(groups, outcomes)
		for _, o := range outcomes {
			if o.Succeeded() {
				continue
			}
			kind := "tool_invocation"
			if o.Status == query.OutcomeTimedOut {
				kind = "timeout"
			}
			errs = append(errs, query.OutcomeError{
				SubQueryID: o.SubQueryID,
				Tool:       o.Tool,
				Kind:       kind,
				Message:    o.Err,
			})
		}

		// Disjoint intersection cannot recover; stop scheduling further
		// groups. An all-failed group proves nothing: failed outcomes
		// are excluded from the intersection, so later groups still run.
		if plan.Strategy == query.StrategyIntersect && anySucceeded(groups) && len(intersectIDs(groups)) == 0 {
			slog.Debug("intersection empty, skipping remaining groups",
				"plan_id", plan.ID, "groups_run", len(groups))
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	result := aggregate(plan, groups, errs)
	result.Elapsed = time.Since(start)

	e.statsMu.Lock()
	e.plansRun++
	for _, oe := range errs {
		e.errorsByKind[oe.Kind]++
	}
	e.statsMu.Unlock()

	if e.metrics != nil {
		e.metrics.PlansExecuted.Add(ctx, 1)
		e.metrics.PlanDuration.Record(ctx, result.Elapsed.Seconds())
	}

	e.publish(ctx, ws.EventPlanFinished, ws.PlanFinishedEvent{
		PlanID:       plan.ID,
		TotalMatches: len(result.EntityIDs),
		Errors:       len(result.Errors),
		ElapsedMs:    result.Elapsed.Milliseconds(),
	})

	slog.Info("plan executed",
		"plan_id", plan.ID,
		"strategy", plan.Strategy,
		"sub_queries", len(plan.SubQueries),
		"matches", len(result.EntityIDs),
		"errors", len(result.Errors),
		"elapsed_ms", result.Elapsed.Milliseconds())

	return result, nil
}

// ExecutorStats is a point-in-time snapshot of plan execution counters.
type ExecutorStats struct {
	PlansExecuted int64            `json:"plans_executed"`
	ErrorsByKind  map[string]int64 `json:"errors_by_kind"`
}

// Stats snapshots the executor's counters.
func (e *PlanExecutor) Stats() ExecutorStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	byKind := make(map[string]int64, len(e.errorsByKind))
	for k, v := range e.errorsByKind {
		byKind[k] = v
	}
	return ExecutorStats{PlansExecuted: e.plansRun, ErrorsByKind: byKind}
}

// runGroup fans out one priority group and waits for every invocation
// to settle.
func (e *PlanExecutor) runGroup(ctx context.Context, planID string, group []query.SubQuery) []*query.ToolOutcome {
	outcomes := make([]*query.ToolOutcome, len(group))

	var wg sync.WaitGroup
	for i, sq := range group {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = e.invoke(ctx, sq)
			e.publishSettled(ctx, planID, outcomes[i])
		}()
	}
	wg.Wait()

	return outcomes
}

// invoke runs one sub-query through the cache and converts any failure
// into a settled outcome.
func (e *PlanExecutor) invoke(ctx context.Context, sq query.SubQuery) *query.ToolOutcome {
	outcome := &query.ToolOutcome{
		SubQueryID: sq.ID,
		Tool:       sq.Tool,
		Status:     query.OutcomePending,
		Started:    time.Now(),
	}

	ctx, span := otel.StartToolCallSpan(ctx, sq.ID, sq.Tool)
	defer span.End()

	if e.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.toolTimeout)
		defer cancel()
	}

	data, fromCache, err := e.cache.GetOrFetch(ctx, sq.Tool, sq.Params, func(ctx context.Context) ([]byte, error) {
		res, err := e.searcher.Invoke(ctx, sq.Tool, sq.Params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res.EntityIDs)
	})

	outcome.Settled = time.Now()
	outcome.FromCache = fromCache

	if e.metrics != nil {
		e.metrics.ToolCalls.Add(ctx, 1)
		e.metrics.ToolDuration.Record(ctx, outcome.Settled.Sub(outcome.Started).Seconds())
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			outcome.Status = query.OutcomeTimedOut
		} else {
			outcome.Status = query.OutcomeFailed
		}
		outcome.Err = err.Error()
		if e.metrics != nil {
			e.metrics.ToolFailures.Add(ctx, 1)
		}
		slog.Warn("tool invocation failed",
			"sub_query_id", sq.ID, "tool", sq.Tool,
			"status", outcome.Status, "error", err)
		return outcome
	}

	var ids []query.EntityID
	if err := json.Unmarshal(data, &ids); err != nil {
		outcome.Status = query.OutcomeFailed
		outcome.Err = "malformed cached value: " + err.Error()
		return outcome
	}

	outcome.Status = query.OutcomeSucceeded
	outcome.EntityIDs = ids
	return outcome
}

func (e *PlanExecutor) publish(ctx context.Context, eventType string, payload any) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastEvent(ctx, eventType, payload)
	}
}

func (e *PlanExecutor) publishSettled(ctx context.Context, planID string, o *query.ToolOutcome) {
	e.publish(ctx, ws.EventToolSettled, ws.ToolSettledEvent{
		PlanID:     planID,
		SubQueryID: o.SubQueryID,
		Tool:       o.Tool,
		Status:     string(o.Status),
		Matches:    len(o.EntityIDs),
		FromCache:  o.FromCache,
		Error:      o.Err,
	})
}
