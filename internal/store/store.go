// internal/store/store.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Run is one archived recording session: the task, when it ran, and the
// three action views the recorder produced.
type Run struct {
	ID        uuid.UUID
	Task      string
	CreatedAt time.Time
	Agent     []schemas.Action
	Manual    []schemas.Action
	Merged    []schemas.Action
}

// Store archives recording runs in PostgreSQL. The action lists are stored
// as JSONB in the same envelope shape as the on-disk logs.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id         UUID PRIMARY KEY,
    task       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    agent      JSONB NOT NULL,
    manual     JSONB NOT NULL,
    merged     JSONB NOT NULL
)`

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// SaveRun archives one recording run.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	agent, err := schemas.MarshalActionLog(run.Agent)
	if err != nil {
		return fmt.Errorf("marshaling agent channel: %w", err)
	}
	manual, err := schemas.MarshalActionLog(run.Manual)
	if err != nil {
		return fmt.Errorf("marshaling manual channel: %w", err)
	}
	merged, err := schemas.MarshalActionLog(run.Merged)
	if err != nil {
		return fmt.Errorf("marshaling merged list: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, task, created_at, agent, manual, merged)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Task, run.CreatedAt.UTC(), agent, manual, merged)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	s.log.Info("Archived run.",
		zap.String("run_id", run.ID.String()),
		zap.String("task", run.Task),
		zap.Int("merged_actions", len(run.Merged)))
	return nil
}

// LoadRun fetches an archived run by id.
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var (
		run                   Run
		agent, manual, merged []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, task, created_at, agent, manual, merged FROM runs WHERE id = $1`,
		id).Scan(&run.ID, &run.Task, &run.CreatedAt, &agent, &manual, &merged)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	if run.Agent, err = schemas.ParseActionLog(agent); err != nil {
		return nil, fmt.Errorf("parsing agent channel: %w", err)
	}
	if run.Manual, err = schemas.ParseActionLog(manual); err != nil {
		return nil, fmt.Errorf("parsing manual channel: %w", err)
	}
	if run.Merged, err = schemas.ParseActionLog(merged); err != nil {
		return nil, fmt.Errorf("parsing merged list: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first, without their action
// payloads.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, task, created_at FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Task, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
