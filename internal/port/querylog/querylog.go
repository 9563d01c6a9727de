// Package querylog defines the port for recording answered queries.
package querylog

import (
	"context"
	"time"
)

// Record is one answered (or failed) query.
type Record struct {
	ID           string        `json:"id"`
	Question     string        `json:"question"`
	Strategy     string        `json:"strategy"`
	SubQueries   int           `json:"sub_queries"`
	TotalMatches int           `json:"total_matches"`
	Profiles     int           `json:"profiles"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store persists query records. Writes are best-effort from the
// engine's point of view: a store failure is logged, never surfaced to
// the caller of Ask.
type Store interface {
	RecordQuery(ctx context.Context, rec *Record) error
	RecentQueries(ctx context.Context, limit int) ([]Record, error)
}
