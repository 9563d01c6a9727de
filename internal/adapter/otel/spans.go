package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "connect-core"

// StartPlanSpan starts a span for one plan execution.
func StartPlanSpan(ctx context.Context, planID, strategy string, subQueries int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "plan",
		trace.WithAttributes(
			attribute.String("plan.id", planID),
			attribute.String("plan.strategy", strategy),
			attribute.Int("plan.sub_queries", subQueries),
		),
	)
}

// StartToolCallSpan starts a span for one sub-query invocation.
func StartToolCallSpan(ctx context.Context, subQueryID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", subQueryID),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartSynthesisSpan starts a span for the answer synthesis stage.
func StartSynthesisSpan(ctx context.Context, queryID string, profiles int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "synthesis",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.Int("synthesis.profiles", profiles),
		),
	)
}
