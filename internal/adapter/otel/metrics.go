package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "connect-core"

// Metrics holds all engine metric instruments.
type Metrics struct {
	PlansExecuted metric.Int64Counter
	ToolCalls     metric.Int64Counter
	ToolFailures  metric.Int64Counter
	CacheHits     metric.Int64Counter
	CacheMisses   metric.Int64Counter
	ParseFailures metric.Int64Counter
	PlanDuration  metric.Float64Histogram
	ToolDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PlansExecuted, err = meter.Int64Counter("connect.plans.executed",
		metric.WithDescription("Number of execution plans run"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("connect.toolcalls",
		metric.WithDescription("Number of graph tool invocations"))
	if err != nil {
		return nil, err
	}

	m.ToolFailures, err = meter.Int64Counter("connect.toolcalls.failed",
		metric.WithDescription("Number of failed or timed out tool invocations"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("connect.cache.hits",
		metric.WithDescription("Tool cache hits"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("connect.cache.misses",
		metric.WithDescription("Tool cache misses"))
	if err != nil {
		return nil, err
	}

	m.ParseFailures, err = meter.Int64Counter("connect.profiles.parse_failures",
		metric.WithDescription("Profile responses no parse strategy could recover"))
	if err != nil {
		return nil, err
	}

	m.PlanDuration, err = meter.Float64Histogram("connect.plan.duration_seconds",
		metric.WithDescription("Plan execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ToolDuration, err = meter.Float64Histogram("connect.toolcall.duration_seconds",
		metric.WithDescription("Tool invocation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
