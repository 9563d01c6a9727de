// Package service implements the query orchestration engine: plan
// execution, the tiered tool cache, aggregation, profile hydration,
// and the end-to-end ask pipeline.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/connecthq/connect-core/internal/adapter/otel"
	"github.com/connecthq/connect-core/internal/adapter/ws"
	"github.com/connecthq/connect-core/internal/domain/profile"
	"github.com/connecthq/connect-core/internal/domain/query"
	"github.com/connecthq/connect-core/internal/port/broadcast"
	"github.com/connecthq/connect-core/internal/port/oracle"
	"github.com/connecthq/connect-core/internal/port/querylog"
)

// Answer is the complete response to one question.
type Answer struct {
	QueryID      string               `json:"query_id"`
	Question     string               `json:"question"`
	Text         string               `json:"answer"`
	Strategy     query.Strategy       `json:"strategy"`
	TotalMatches int                  `json:"total_matches"`
	Profiles     []*profile.Profile   `json:"profiles"`
	FetchStats   profile.FetchStats   `json:"fetch_stats"`
	ToolErrors   []query.OutcomeError `json:"tool_errors,omitempty"`
	Elapsed      time.Duration        `json:"elapsed_ms"`
}

// QueryService runs the full ask pipeline: plan, execute, hydrate,
// synthesize, record.
type QueryService struct {
	planner     oracle.Planner
	synthesizer oracle.Synthesizer
	executor    *PlanExecutor
	log         querylog.Store
	broadcaster broadcast.Broadcaster

	planTimeout  time.Duration
	profileLimit int
}

// NewQueryService wires the pipeline. log and broadcaster may be nil.
func NewQueryService(planner oracle.Planner, synthesizer oracle.Synthesizer, executor *PlanExecutor, log querylog.Store, broadcaster broadcast.Broadcaster, planTimeout time.Duration, profileLimit int) *QueryService {
	return &QueryService{
		planner:      planner,
		synthesizer:  synthesizer,
		executor:     executor,
		log:          log,
		broadcaster:  broadcaster,
		planTimeout:  planTimeout,
		profileLimit: profileLimit,
	}
}

// Ask answers one free-text question. Oracle failures and plan contract
// violations are fatal to the query; tool, cache, and parse failures
// degrade the answer instead. Zero matches is a normal low-confidence
// answer, not an error.
func (s *QueryService) Ask(ctx context.Context, question string, limit int) (*Answer, error) {
	start := time.Now()
	if limit <= 0 {
		limit = s.profileLimit
	}

	filters, err := s.planner.Decompose(ctx, question)
	if err != nil {
		return nil, s.failed(ctx, question, start, fmt.Errorf("planner decompose: %w", err))
	}

	plan, err := s.planner.GeneratePlan(ctx, question, filters)
	if err != nil {
		return nil, s.failed(ctx, question, start, fmt.Errorf("planner generate: %w", err))
	}

	execCtx := ctx
	if s.planTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.planTimeout)
		defer cancel()
	}

	result, err := s.executor.Execute(execCtx, plan)
	if err != nil {
		return nil, s.failed(ctx, question, start, err)
	}

	profiles, fetchStats := s.executor.FetchProfiles(execCtx, result.EntityIDs, limit)

	synthCtx, span := otel.StartSynthesisSpan(ctx, plan.ID, len(profiles))
	text, err := s.synthesizer.Synthesize(synthCtx, profiles, question, len(result.EntityIDs))
	span.End()
	if err != nil {
		return nil, s.failed(ctx, question, start, fmt.Errorf("synthesize: %w", err))
	}

	answer := &Answer{
		QueryID:      plan.ID,
		Question:     question,
		Text:         text,
		Strategy:     plan.Strategy,
		TotalMatches: len(result.EntityIDs),
		Profiles:     profiles,
		FetchStats:   fetchStats,
		ToolErrors:   result.Errors,
		Elapsed:      time.Since(start),
	}

	s.record(ctx, &querylog.Record{
		ID:           plan.ID,
		Question:     question,
		Strategy:     string(plan.Strategy),
		SubQueries:   len(plan.SubQueries),
		TotalMatches: answer.TotalMatches,
		Profiles:     len(profiles),
		Duration:     answer.Elapsed,
	})

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(ctx, ws.EventAnswerReady, ws.AnswerReadyEvent{
			QueryID: answer.QueryID,
			Answer:  text,
		})
	}

	return answer, nil
}

// RecentQueries exposes the query log, newest first.
func (s *QueryService) RecentQueries(ctx context.Context, limit int) ([]querylog.Record, error) {
	if s.log == nil {
		return nil, nil
	}
	return s.log.RecentQueries(ctx, limit)
}

// failed records a fatal query outcome and passes the error through.
func (s *QueryService) failed(ctx context.Context, question string, start time.Time, err error) error {
	s.record(ctx, &querylog.Record{
		ID:       uuid.NewString(),
		Question: question,
		Duration: time.Since(start),
		Error:    err.Error(),
	})
	return err
}

// record writes one query log entry. Best-effort: store failures are
// logged, never surfaced.
func (s *QueryService) record(ctx context.Context, rec *querylog.Record) {
	if s.log == nil {
		return
	}
	if err := s.log.RecordQuery(context.WithoutCancel(ctx), rec); err != nil {
		slog.Error("query log write failed", "query_id", rec.ID, "error", err)
	}
}
