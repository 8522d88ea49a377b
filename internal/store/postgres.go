package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/oncoqa/validata/internal/report"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	datasets   JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_violations (
	id       TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	position INTEGER NOT NULL,
	standard TEXT NOT NULL,
	severity TEXT NOT NULL,
	locator  TEXT NOT NULL,
	fields   TEXT NOT NULL,
	message  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_violations_run_id ON run_violations(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, datasets []string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Datasets:  datasets,
		Status:    RunQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	ds, err := json.Marshal(datasets)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal datasets")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, datasets, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(ds), run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, rep *report.Report) error {
	summary, err := json.Marshal(rep.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		RunCompleted, string(summary), time.Now().UTC(), runID,
	); err != nil {
		return eris.Wrap(err, "postgres: complete run")
	}

	for i, row := range rep.ToRows() {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO run_violations (id, run_id, position, standard, severity, locator, fields, message) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.NewString(), runID, i, row.Standard, row.Severity, row.Locator, row.Fields, row.Message,
		); err != nil {
			return eris.Wrap(err, "postgres: insert violation")
		}
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		RunFailed, reason, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: fail run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run %s: not found", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if filter.Status != "" {
		rows, err = s.pool.Query(ctx,
			`SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
			filter.Status, limit,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanPgRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) ListViolations(ctx context.Context, runID string) ([]report.Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT standard, severity, locator, fields, message FROM run_violations WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list violations")
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var r report.Row
		if err := rows.Scan(&r.Standard, &r.Severity, &r.Locator, &r.Fields, &r.Message); err != nil {
			return nil, eris.Wrap(err, "postgres: scan violation")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list violations")
}

func scanPgRun(scan func(dest ...any) error) (*Run, error) {
	var (
		run      Run
		datasets []byte
		summary  []byte
		errMsg   *string
	)
	if err := scan(&run.ID, &datasets, &run.Status, &summary, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(datasets, &run.Datasets); err != nil {
		return nil, eris.Wrap(err, "decode datasets")
	}
	if len(summary) > 0 {
		var s report.Summary
		if err := json.Unmarshal(summary, &s); err != nil {
			return nil, eris.Wrap(err, "decode summary")
		}
		run.Summary = &s
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}
