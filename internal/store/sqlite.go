package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/oncoqa/validata/internal/report"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	datasets   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, datasets []string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Datasets:  datasets,
		Status:    RunQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	ds, err := json.Marshal(datasets)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal datasets")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, datasets, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(ds), run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, rep *report.Report) error {
	summary, err := json.Marshal(rep.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		RunCompleted, string(summary), time.Now().UTC(), runID,
	); err != nil {
		return eris.Wrap(err, "sqlite: complete run")
	}

	for i, row := range rep.ToRows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_violations (id, run_id, position, standard, severity, locator, fields, message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), runID, i, row.Standard, row.Severity, row.Locator, row.Fields, row.Message,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert violation")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		RunFailed, reason, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: fail run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: get run %s: not found", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) ListViolations(ctx context.Context, runID string) ([]report.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT standard, severity, locator, fields, message FROM run_violations WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list violations")
	}
	defer rows.Close() //nolint:errcheck

	var out []report.Row
	for rows.Next() {
		var r report.Row
		if err := rows.Scan(&r.Standard, &r.Severity, &r.Locator, &r.Fields, &r.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan violation")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list violations")
}

// scanRun decodes one runs row from either QueryRow or Query scans.
func scanRun(scan func(dest ...any) error) (*Run, error) {
	var (
		run      Run
		datasets string
		summary  sql.NullString
		errMsg   sql.NullString
	)
	if err := scan(&run.ID, &datasets, &run.Status, &summary, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(datasets), &run.Datasets); err != nil {
		return nil, eris.Wrap(err, "decode datasets")
	}
	if summary.Valid && summary.String != "" {
		var s report.Summary
		if err := json.Unmarshal([]byte(summary.String), &s); err != nil {
			return nil, eris.Wrap(err, "decode summary")
		}
		run.Summary = &s
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}
