package query

import "time"

// OutcomeStatus is the lifecycle state of a single tool invocation.
// Transitions: Pending -> Succeeded | Failed | TimedOut. Terminal
// states are immutable once set.
type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "pending"
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeTimedOut  OutcomeStatus = "timed_out"
)

// IsTerminal returns true if the invocation has settled.
func (s OutcomeStatus) IsTerminal() bool {
	switch s {
	case OutcomeSucceeded, OutcomeFailed, OutcomeTimedOut:
		return true
	}
	return false
}

// ToolOutcome is the settled result of one sub-query invocation.
// Owned exclusively by the invocation that produced it until handed to
// the aggregator; never mutated after completion.
type ToolOutcome struct {
	SubQueryID string        `json:"sub_query_id"`
	Tool       string        `json:"tool"`
	Status     OutcomeStatus `json:"status"`
	EntityIDs  []EntityID    `json:"entity_ids,omitempty"`
	Err        string        `json:"error,omitempty"`
	Started    time.Time     `json:"started"`
	Settled    time.Time     `json:"settled"`
	FromCache  bool          `json:"from_cache,omitempty"`
}

// Succeeded reports whether the invocation settled successfully.
func (o *ToolOutcome) Succeeded() bool { return o.Status == OutcomeSucceeded }

// OutcomeError records one recovered per-invocation failure.
type OutcomeError struct {
	SubQueryID string `json:"sub_query_id"`
	Tool       string `json:"tool"`
	Kind       string `json:"kind"` // "tool_invocation" | "timeout"
	Message    string `json:"message"`
}

// AggregatedResult is the combined, deduplicated outcome of a plan
// execution. Built once, read-only afterward. A result with zero
// entity ids is a normal low-confidence terminal state, not an error.
type AggregatedResult struct {
	PlanID    string           `json:"plan_id"`
	Strategy  Strategy         `json:"strategy"`
	EntityIDs []EntityID       `json:"entity_ids"`
	Counts    map[string]int   `json:"per_sub_query_counts"` // raw sizes pre-dedup
	Errors    []OutcomeError   `json:"errors,omitempty"`
	Groups    [][]*ToolOutcome `json:"-"` // settled outcomes per priority group
	Elapsed   time.Duration    `json:"-"`
}
