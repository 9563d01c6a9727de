package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/connecthq/connect-core/internal/domain/query"
)

// Planner implements the planner oracle over the LiteLLM proxy.
type Planner struct {
	client *Client
	model  string
}

// NewPlanner creates a planner using the given model.
func NewPlanner(client *Client, model string) *Planner {
	return &Planner{client: client, model: model}
}

const decomposeSystem = `You extract structured search filters from questions about people.
Respond with a single JSON object with these keys:
"skill_filters", "company_filters", "location_filters", "name_filters",
"institution_filters" (each an array of strings, empty if not mentioned)
and "other_criteria" (array of free-form strings).`

// Decompose extracts structured search filters from the question.
func (p *Planner) Decompose(ctx context.Context, question string) (map[string]any, error) {
	content, err := p.client.complete(ctx, p.model, decomposeSystem, question, true)
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	var filters map[string]any
	if err := json.Unmarshal([]byte(stripFences(content)), &filters); err != nil {
		return nil, fmt.Errorf("decompose: parse filters: %w", err)
	}
	return filters, nil
}

const planSystem = `You translate people-search filters into an execution plan for a graph
search service. Available tools: find_person_by_name(name),
find_people_by_skill(skill), find_people_by_company(company_name),
find_people_by_location(location), find_people_by_institution(institution_name).

Respond with a single JSON object:
{
  "sub_queries": [
    {"sub_query": "<description>", "tool": "<tool name>",
     "params": {...}, "priority": 1, "rationale": "<why>"}
  ],
  "execution_strategy": "parallel_union" | "parallel_intersect" | "sequential"
}
Sub-queries sharing a priority run in parallel; lower priority runs first.
Use parallel_intersect for AND logic, parallel_union for OR logic, and
sequential when later steps must narrow within earlier results.`

// plannedSubQuery mirrors the planner model's sub-query JSON shape.
type plannedSubQuery struct {
	SubQuery  string         `json:"sub_query"`
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params"`
	Priority  int            `json:"priority"`
	Rationale string         `json:"rationale"`
}

// plannedResponse mirrors the planner model's top-level JSON shape.
type plannedResponse struct {
	SubQueries []plannedSubQuery `json:"sub_queries"`
	Strategy   string            `json:"execution_strategy"`
}

// GeneratePlan produces an ExecutionPlan from the question and its filters.
// The engine validates the returned plan before issuing any invocation.
func (p *Planner) GeneratePlan(ctx context.Context, question string, filters map[string]any) (*query.ExecutionPlan, error) {
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("generate plan: marshal filters: %w", err)
	}

	user := fmt.Sprintf("Question: %s\nFilters: %s", question, filtersJSON)
	content, err := p.client.complete(ctx, p.model, planSystem, user, true)
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	var planned plannedResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &planned); err != nil {
		return nil, fmt.Errorf("generate plan: parse response: %w", err)
	}

	subs := make([]query.SubQuery, 0, len(planned.SubQueries))
	for _, sq := range planned.SubQueries {
		subs = append(subs, query.SubQuery{
			Tool:      sq.Tool,
			Params:    sq.Params,
			Priority:  sq.Priority,
			Rationale: sq.Rationale,
		})
	}

	return query.NewPlan(question, mapStrategy(planned.Strategy), subs), nil
}

// mapStrategy converts the model's strategy vocabulary to the domain
// enum. Unknown values pass through unchanged so plan validation reports
// them as contract violations.
func mapStrategy(s string) query.Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parallel_union", "union":
		return query.StrategyUnion
	case "parallel_intersect", "intersect":
		return query.StrategyIntersect
	case "sequential":
		return query.StrategySequential
	default:
		return query.Strategy(s)
	}
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
