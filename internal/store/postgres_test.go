package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncoqa/validata/internal/model"
	"github.com/oncoqa/validata/internal/report"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), `["a.csv","b.csv"]`, RunQueued, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), []string{"a.csv", "b.csv"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunQueued, run.Status)
	assert.Equal(t, []string{"a.csv", "b.csv"}, run.Datasets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	rep := &report.Report{
		Violations: []model.Violation{
			{
				RuleID:   "icd10-vital-status-presence",
				Standard: model.StandardICD10,
				Severity: model.SeverityError,
				Locator:  model.Locator{File: "a.csv", Row: 2},
				Fields:   []string{"Vital Status"},
				Message:  "missing required field",
			},
		},
	}

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(RunCompleted, pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO run_violations").
		WithArgs(pgxmock.AnyArg(), "run-1", 0, "icd10", "ERROR", "a.csv:2", "Vital Status", "missing required field").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", rep))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(RunFailed, "bad rule file", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(context.Background(), "run-1", "bad rule file"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "datasets", "status", "summary", "error", "created_at", "updated_at"}).
			AddRow("run-1", []byte(`["a.csv"]`), RunCompleted, []byte(`{"errors":1,"warnings":0}`), (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, []string{"a.csv"}, run.Datasets)
	assert.Equal(t, RunCompleted, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 1, run.Summary.Errors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "datasets", "status", "summary", "error", "created_at", "updated_at"}))

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresListRuns(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs ORDER BY created_at DESC").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "datasets", "status", "summary", "error", "created_at", "updated_at"}).
			AddRow("run-2", []byte(`["b.csv"]`), RunQueued, []byte(nil), (*string)(nil), now, now).
			AddRow("run-1", []byte(`["a.csv"]`), RunCompleted, []byte(`{}`), (*string)(nil), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRunsByStatus(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, datasets, status, summary, error, created_at, updated_at FROM runs WHERE status").
		WithArgs(RunFailed, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "datasets", "status", "summary", "error", "created_at", "updated_at"}).
			AddRow("run-3", []byte(`["c.csv"]`), RunFailed, []byte(nil), strPtr("boom"), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: RunFailed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "boom", runs[0].Error)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListViolations(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT standard, severity, locator, fields, message FROM run_violations").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"standard", "severity", "locator", "fields", "message"}).
			AddRow("icd10", "ERROR", "a.csv:2", "Vital Status", "missing required field").
			AddRow("tg263", "WARNING", "a.csv:3", "Structure Name", "deprecated"))

	rows, err := s.ListViolations(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "icd10", rows[0].Standard)
	assert.Equal(t, "a.csv:3", rows[1].Locator)
	require.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
