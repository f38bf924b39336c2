package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row is the single-row scan surface shared by pgx and test fakes.
type Row interface {
	Scan(dest ...any) error
}

// DB is the narrow database surface the repository needs. *pgxpool.Pool
// satisfies it through the Pool adapter; tests supply fakes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Pool adapts *pgxpool.Pool to DB.
type Pool struct {
	pool *pgxpool.Pool
}

// OpenPool connects a pgx pool with the sizing this subsystem needs.
func OpenPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MinConns = 1
	cfg.MaxConns = 5
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Exec runs a statement, discarding the command tag.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

// QueryRow runs a single-row query.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Close releases the pool.
func (p *Pool) Close() { p.pool.Close() }

// ErrNoRows is re-exported so callers need not import pgx directly.
var ErrNoRows = pgx.ErrNoRows

const schemaDDL = `
CREATE TABLE IF NOT EXISTS orchestrator_jobs (
    job_id          TEXT PRIMARY KEY,
    job_type        TEXT NOT NULL,
    correlation_id  TEXT NOT NULL,
    payload         JSONB NOT NULL DEFAULT '{}'::jsonb,
    attempt         INTEGER NOT NULL DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'requested',
    is_terminal     BOOLEAN NOT NULL DEFAULT FALSE,
    terminal_reason TEXT,
    last_error      TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at    TIMESTAMPTZ
)`

// EnsureSchema creates the jobs table if missing. Retention and wider schema
// migration are owned elsewhere; this covers only what the orchestrator
// writes and reads.
func EnsureSchema(ctx context.Context, db DB) error {
	if err := db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
