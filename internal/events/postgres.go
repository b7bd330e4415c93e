package events

import (
	"context"
	"fmt"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createEventsTable = `CREATE TABLE IF NOT EXISTS otc_events (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
)`

// PostgresSink appends events to the otc_events table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink opens a pool for dsn, pings it and ensures the events
// table exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createEventsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create otc_events: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, e domain.Event) error {
	p, err := payloadJSON(e.Payload)
	if err != nil {
		return err
	}

	const query = `INSERT INTO otc_events (id, kind, payload, recorded_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, e.ID, string(e.Kind), p, e.RecordedAt); err != nil {
		return fmt.Errorf("postgres: insert event %s: %w", e.Kind, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
