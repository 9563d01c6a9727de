package logger

import "context"

// Unexported key type keeps the request id entry private to this package;
// callers go through WithRequestID and RequestID.
type contextKey struct{}

var requestIDKey = contextKey{}

// WithRequestID stores the HTTP request id in the context so slog output
// from services deeper in the call chain can correlate records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored by WithRequestID, or "" when
// the context carries none (background jobs, tests).
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
