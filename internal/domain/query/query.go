// Package query defines the execution plan domain types for the
// people-graph query orchestration engine.
package query

import (
	"time"

	"github.com/google/uuid"
)

// Strategy is the set-combination rule applied to sub-query outcomes.
type Strategy string

const (
	// StrategyUnion merges entity ids from all successful sub-queries.
	StrategyUnion Strategy = "union"
	// StrategyIntersect keeps only entity ids present in every
	// successful sub-query.
	StrategyIntersect Strategy = "intersect"
	// StrategySequential narrows candidates group by group: each later
	// priority group is planner-parameterized to search only within the
	// previous group's candidate set.
	StrategySequential Strategy = "sequential"
)

// Valid reports whether s is a recognized strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyUnion, StrategyIntersect, StrategySequential:
		return true
	}
	return false
}

// EntityID identifies one record in the external people graph.
// Dedup and intersection are by exact EntityID equality only.
type EntityID = int64

// SubQuery is one atomic call to the external graph search service.
// Immutable once part of a plan.
type SubQuery struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params,omitempty"`
	Priority  int            `json:"priority"` // ascending = earlier
	Rationale string         `json:"rationale,omitempty"`
}

// ExecutionPlan is an ordered set of sub-queries plus the aggregation
// strategy. Produced by the planner oracle, consumed once by the engine.
type ExecutionPlan struct {
	ID         string     `json:"id"`
	Question   string     `json:"question,omitempty"`
	SubQueries []SubQuery `json:"sub_queries"`
	Strategy   Strategy   `json:"strategy"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewPlan creates a plan with generated plan and sub-query ids.
// Sub-queries without an id get one assigned; declared order is kept.
func NewPlan(question string, strategy Strategy, subs []SubQuery) *ExecutionPlan {
	p := &ExecutionPlan{
		ID:         uuid.NewString(),
		Question:   question,
		SubQueries: subs,
		Strategy:   strategy,
		CreatedAt:  time.Now().UTC(),
	}
	for i := range p.SubQueries {
		if p.SubQueries[i].ID == "" {
			p.SubQueries[i].ID = uuid.NewString()
		}
	}
	return p
}

// PriorityGroups partitions the plan's sub-queries by priority and
// returns the groups in ascending priority order. Declared order is
// preserved within each group.
func (p *ExecutionPlan) PriorityGroups() [][]SubQuery {
	byPriority := make(map[int][]SubQuery)
	var order []int
	for _, sq := range p.SubQueries {
		if _, seen := byPriority[sq.Priority]; !seen {
			order = append(order, sq.Priority)
		}
		byPriority[sq.Priority] = append(byPriority[sq.Priority], sq)
	}
	// insertion sort: plans have a handful of priority levels
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j] < order[j-1]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	groups := make([][]SubQuery, 0, len(order))
	for _, pr := range order {
		groups = append(groups, byPriority[pr])
	}
	return groups
}
