package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoqa/validata/internal/config"
	"github.com/oncoqa/validata/internal/model"
	"github.com/oncoqa/validata/internal/report"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "validata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleReport() *report.Report {
	return &report.Report{
		RegistryVersion: "2025a-embedded",
		Violations: []model.Violation{
			{
				RuleID:   "icd10-vital-status-presence",
				Standard: model.StandardICD10,
				Severity: model.SeverityError,
				Locator:  model.Locator{File: "patients.csv", Row: 2},
				Fields:   []string{"Vital Status"},
				Message:  "missing required field",
			},
			{
				RuleID:   "icd10-diagnosis-code-membership",
				Standard: model.StandardICD10,
				Severity: model.SeverityWarning,
				Locator:  model.Locator{File: "patients.csv", Row: 5},
				Fields:   []string{"Diagnosis Code"},
				Values:   []string{"C97"},
				Message:  "code \"C97\" is deprecated in the icd10 code set",
			},
		},
		Summary: report.Summary{
			Datasets: 1,
			Records:  10,
			Errors:   1,
			Warnings: 1,
		},
	}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, []string{"patients.csv"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunQueued, run.Status)

	require.NoError(t, s.CompleteRun(ctx, run.ID, sampleReport()))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, []string{"patients.csv"}, got.Datasets)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1, got.Summary.Errors)
	assert.Equal(t, 1, got.Summary.Warnings)
	assert.Equal(t, 10, got.Summary.Records)
}

func TestSQLiteFailRun(t *testing.T) {
	t.Parallel()
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, []string{"broken.xml"})
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, "rules: unknown code set"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, got.Status)
	assert.Equal(t, "rules: unknown code set", got.Error)
	assert.Nil(t, got.Summary)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	t.Parallel()
	s := newTestSQLiteStore(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, []string{"a.csv"})
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, []string{"b.csv"})
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, second.ID, "boom"))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	failed, err := s.ListRuns(ctx, RunFilter{Status: RunFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second.ID, failed[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	queued, err := s.ListRuns(ctx, RunFilter{Status: RunQueued})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, first.ID, queued[0].ID)
}

func TestSQLiteListViolations(t *testing.T) {
	t.Parallel()
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, []string{"patients.csv"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, run.ID, sampleReport()))

	rows, err := s.ListViolations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ERROR", rows[0].Severity)
	assert.Equal(t, "patients.csv:2", rows[0].Locator)
	assert.Equal(t, "WARNING", rows[1].Severity)
	assert.Equal(t, "Diagnosis Code", rows[1].Fields)
}

func TestStoreFactoryUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), config.StoreConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestStoreFactorySQLite(t *testing.T) {
	t.Parallel()
	cfg := config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "validata.db"),
	}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(context.Background()))
}
