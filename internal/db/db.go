package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a Postgres connection pool for the workflow event log.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres using the given DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases the connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Migrate creates the event log schema if it doesn't exist.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflow_events (
			id         BIGSERIAL PRIMARY KEY,
			issue      INTEGER NOT NULL,
			event      TEXT NOT NULL,
			stage      TEXT NOT NULL DEFAULT '',
			attempt    INTEGER NOT NULL DEFAULT 0,
			detail     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS workflow_events_issue_idx ON workflow_events (issue, created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Event is one row of the workflow event log.
type Event struct {
	ID        int64
	Issue     int
	Event     string
	Stage     string
	Attempt   int
	Detail    string
	CreatedAt time.Time
}

// LogWorkflowEvent appends an event to the log.
func (d *DB) LogWorkflowEvent(ctx context.Context, issue int, event, stage string, attempt int, detail string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO workflow_events (issue, event, stage, attempt, detail) VALUES ($1, $2, $3, $4, $5)`,
		issue, event, stage, attempt, detail)
	if err != nil {
		return fmt.Errorf("log workflow event: %w", err)
	}
	return nil
}

// GetWorkflowHistory returns all events for an issue in chronological order.
func (d *DB) GetWorkflowHistory(ctx context.Context, issue int) ([]Event, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, issue, event, stage, attempt, detail, created_at
		 FROM workflow_events WHERE issue = $1 ORDER BY created_at, id`,
		issue)
	if err != nil {
		return nil, fmt.Errorf("query workflow history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Issue, &e.Event, &e.Stage, &e.Attempt, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
