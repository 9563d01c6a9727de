package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connecthq/connect-core/internal/port/querylog"
)

// Store implements querylog.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordQuery inserts one answered (or failed) query.
func (s *Store) RecordQuery(ctx context.Context, rec *querylog.Record) error {
	const q = `
		INSERT INTO queries (id, question, strategy, sub_queries, total_matches, profiles, duration_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return s.pool.QueryRow(ctx, q,
		rec.ID, rec.Question, rec.Strategy, rec.SubQueries,
		rec.TotalMatches, rec.Profiles, rec.Duration.Milliseconds(), rec.Error,
	).Scan(&rec.CreatedAt)
}

// RecentQueries returns the most recent query records, newest first.
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]querylog.Record, error) {
	const q = `
		SELECT id, question, strategy, sub_queries, total_matches, profiles, duration_ms, error, created_at
		FROM queries
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	defer rows.Close()

	var result []querylog.Record
	for rows.Next() {
		var rec querylog.Record
		var durationMs int64
		if err := rows.Scan(
			&rec.ID, &rec.Question, &rec.Strategy, &rec.SubQueries,
			&rec.TotalMatches, &rec.Profiles, &durationMs, &rec.Error, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan query record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		result = append(result, rec)
	}
	return result, rows.Err()
}
