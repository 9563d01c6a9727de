// Package broadcast defines the port for pushing query progress events
// to connected UI clients.
package broadcast

import "context"

// Broadcaster sends real-time events to all connected clients.
// Implementations must never block plan execution; slow consumers are
// dropped, not waited on.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
