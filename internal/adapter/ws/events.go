package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventPlanStarted  = "plan.started"
	EventGroupStarted = "plan.group_started"
	EventToolSettled  = "plan.tool_settled"
	EventPlanFinished = "plan.finished"
	EventAnswerReady  = "query.answer"
)

// PlanStartedEvent is broadcast when plan execution begins.
type PlanStartedEvent struct {
	PlanID     string `json:"plan_id"`
	Question   string `json:"question,omitempty"`
	Strategy   string `json:"strategy"`
	SubQueries int    `json:"sub_queries"`
	Groups     int    `json:"groups"`
}

// GroupStartedEvent is broadcast when a priority group is scheduled.
type GroupStartedEvent struct {
	PlanID   string `json:"plan_id"`
	Priority int    `json:"priority"`
	Size     int    `json:"size"`
}

// ToolSettledEvent is broadcast when one sub-query invocation settles.
type ToolSettledEvent struct {
	PlanID     string `json:"plan_id"`
	SubQueryID string `json:"sub_query_id"`
	Tool       string `json:"tool"`
	Status     string `json:"status"`
	Matches    int    `json:"matches"`
	FromCache  bool   `json:"from_cache"`
	Error      string `json:"error,omitempty"`
}

// PlanFinishedEvent is broadcast when plan execution completes.
type PlanFinishedEvent struct {
	PlanID       string `json:"plan_id"`
	TotalMatches int    `json:"total_matches"`
	Errors       int    `json:"errors"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

// AnswerReadyEvent is broadcast when the synthesized answer is available.
type AnswerReadyEvent struct {
	QueryID string `json:"query_id"`
	Answer  string `json:"answer"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
