package service

import (
	"github.com/connecthq/connect-core/internal/domain/query"
)

// aggregate combines settled outcomes into the final entity id list
// under the plan's strategy. Counts record raw per-sub-query sizes
// before any dedup or intersection.
func aggregate(plan *query.ExecutionPlan, groups [][]*query.ToolOutcome, errs []query.OutcomeError) *query.AggregatedResult {
	result := &query.AggregatedResult{
		PlanID:   plan.ID,
		Strategy: plan.Strategy,
		Counts:   make(map[string]int),
		Errors:   errs,
		Groups:   groups,
	}

	for _, group := range groups {
		for _, o := range group {
			result.Counts[o.SubQueryID] = len(o.EntityIDs)
		}
	}

	switch plan.Strategy {
	case query.StrategyIntersect:
		result.EntityIDs = intersectIDs(groups)
	case query.StrategySequential:
		result.EntityIDs = lastGroupIDs(groups)
	default:
		result.EntityIDs = unionIDs(groups)
	}
	if result.EntityIDs == nil {
		result.EntityIDs = []query.EntityID{}
	}
	return result
}

// unionIDs merges successful outcomes in first-seen order: groups
// ascending by priority, declared sub-query order within a group.
func unionIDs(groups [][]*query.ToolOutcome) []query.EntityID {
	var out []query.EntityID
	seen := make(map[query.EntityID]struct{})
	for _, group := range groups {
		for _, o := range group {
			if !o.Succeeded() {
				continue
			}
			for _, id := range o.EntityIDs {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// anySucceeded reports whether any outcome in any group succeeded.
func anySucceeded(groups [][]*query.ToolOutcome) bool {
	for _, group := range groups {
		for _, o := range group {
			if o.Succeeded() {
				return true
			}
		}
	}
	return false
}

// intersectIDs keeps ids present in every successful outcome. Failed
// outcomes are excluded from the intersection rather than forcing it
// empty. Output keeps the first successful outcome's order.
func intersectIDs(groups [][]*query.ToolOutcome) []query.EntityID {
	var successful []*query.ToolOutcome
	for _, group := range groups {
		for _, o := range group {
			if o.Succeeded() {
				successful = append(successful, o)
			}
		}
	}
	if len(successful) == 0 {
		return nil
	}

	counts := make(map[query.EntityID]int)
	for _, o := range successful {
		// Outcomes carry sets, but guard against duplicates anyway.
		inThis := make(map[query.EntityID]struct{}, len(o.EntityIDs))
		for _, id := range o.EntityIDs {
			if _, dup := inThis[id]; dup {
				continue
			}
			inThis[id] = struct{}{}
			counts[id]++
		}
	}

	var out []query.EntityID
	seen := make(map[query.EntityID]struct{})
	for _, id := range successful[0].EntityIDs {
		if counts[id] != len(successful) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// lastGroupIDs implements sequential narrowing: each later group is
// planner-parameterized to search only within the previous candidates,
// so the last group's union of successes is the final candidate set.
func lastGroupIDs(groups [][]*query.ToolOutcome) []query.EntityID {
	if len(groups) == 0 {
		return nil
	}
	return unionIDs(groups[len(groups)-1:])
}
