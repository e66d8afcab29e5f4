package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS import_runs (
    id          UUID PRIMARY KEY,
    kind        TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT,
    successful  INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    request_id  TEXT,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    result      JSONB
);
CREATE INDEX IF NOT EXISTS import_runs_kind_started_idx ON import_runs (kind, started_at DESC);
`

const upsertSQL = `
INSERT INTO import_runs (id, kind, status, message, successful, failed, request_id, started_at, finished_at, result)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    status      = EXCLUDED.status,
    message     = EXCLUDED.message,
    successful  = EXCLUDED.successful,
    failed      = EXCLUDED.failed,
    finished_at = EXCLUDED.finished_at,
    result      = EXCLUDED.result`

// PostgresStore keeps runs in the import_runs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store using pool. Call EnsureSchema once at
// startup.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the import_runs table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create import_runs: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, run Run) error {
	id, err := toPgUUID(run.ID)
	if err != nil {
		return err
	}

	finished := pgtype.Timestamptz{}
	if run.FinishedAt != nil {
		finished = pgtype.Timestamptz{Time: *run.FinishedAt, Valid: true}
	}
	var result []byte
	if len(run.Result) > 0 {
		result = run.Result
	}

	_, err = s.pool.Exec(ctx, upsertSQL,
		id, run.Kind, run.Status, toPgText(run.Message), run.Successful, run.Failed,
		toPgText(run.RequestID), pgtype.Timestamptz{Time: run.StartedAt, Valid: true}, finished, result,
	)
	if err != nil {
		return fmt.Errorf("save import run %s: %w", run.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (Run, error) {
	pgID, err := toPgUUID(id)
	if err != nil {
		return Run{}, ErrNotFound
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, kind, status, message, successful, failed, request_id, started_at, finished_at, result
		FROM import_runs WHERE id = $1`, pgID)

	run, err := scanRun(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get import run %s: %w", id, err)
	}
	return run, nil
}

// List implements Store. Runs are returned newest first and without their
// full result.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, status, message, successful, failed, request_id, started_at, finished_at, NULL::jsonb
		FROM import_runs
		WHERE ($1::text = '' OR kind = $1::text)
		ORDER BY started_at DESC
		LIMIT $2`, f.Kind, f.limit())
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row, withResult bool) (Run, error) {
	var (
		id         pgtype.UUID
		run        Run
		message    pgtype.Text
		requestID  pgtype.Text
		startedAt  pgtype.Timestamptz
		finishedAt pgtype.Timestamptz
		result     []byte
	)
	err := row.Scan(&id, &run.Kind, &run.Status, &message, &run.Successful, &run.Failed,
		&requestID, &startedAt, &finishedAt, &result)
	if err != nil {
		return Run{}, err
	}

	run.ID = uuid.UUID(id.Bytes).String()
	run.Message = message.String
	run.RequestID = requestID.String
	run.StartedAt = startedAt.Time
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	if withResult && len(result) > 0 {
		run.Result = result
	}
	return run, nil
}

func toPgUUID(s string) (pgtype.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
