package query

import (
	"errors"
	"fmt"

	"github.com/connecthq/connect-core/internal/domain"
)

// ContractViolation is returned when a planner-produced plan breaks the
// plan contract. It is fatal for the whole plan: the engine rejects the
// plan before any invocation is issued.
type ContractViolation struct {
	Field  string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("planner contract violation: %s: %s", e.Field, e.Reason)
}

// IsContractViolation reports whether err is a planner contract violation.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// Validate checks the planner contract. Malformed plans (empty
// sub-query list, missing tool name, negative priority, unknown
// strategy) are rejected before scheduling.
func (p *ExecutionPlan) Validate() error {
	if p == nil || len(p.SubQueries) == 0 {
		return domain.ErrEmptyPlan
	}
	if !p.Strategy.Valid() {
		return &ContractViolation{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", p.Strategy)}
	}
	seen := make(map[string]struct{}, len(p.SubQueries))
	for i, sq := range p.SubQueries {
		if sq.Tool == "" {
			return &ContractViolation{
				Field:  fmt.Sprintf("sub_queries[%d].tool", i),
				Reason: "tool name is required",
			}
		}
		if sq.Priority < 0 {
			return &ContractViolation{
				Field:  fmt.Sprintf("sub_queries[%d].priority", i),
				Reason: fmt.Sprintf("priority must be non-negative, got %d", sq.Priority),
			}
		}
		if sq.ID != "" {
			if _, dup := seen[sq.ID]; dup {
				return &ContractViolation{
					Field:  fmt.Sprintf("sub_queries[%d].id", i),
					Reason: fmt.Sprintf("duplicate sub-query id %q", sq.ID),
				}
			}
			seen[sq.ID] = struct{}{}
		}
	}
	return nil
}
