// Package oracle defines the ports to the external LLM-backed
// collaborators: the semantic planner and the narrative synthesizer.
// Their internals are opaque; the engine only consumes these
// request/response contracts.
package oracle

import (
	"context"

	"github.com/connecthq/connect-core/internal/domain/profile"
	"github.com/connecthq/connect-core/internal/domain/query"
)

// Planner turns a free-text question into an executable plan.
type Planner interface {
	// Decompose extracts structured search filters from the question.
	Decompose(ctx context.Context, question string) (map[string]any, error)

	// GeneratePlan produces an ExecutionPlan from the question and its
	// filters. The returned plan is validated by the engine before any
	// invocation is issued.
	GeneratePlan(ctx context.Context, question string, filters map[string]any) (*query.ExecutionPlan, error)
}

// Synthesizer turns hydrated profiles into a prose answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, profiles []*profile.Profile, question string, totalMatches int) (string, error)
}
