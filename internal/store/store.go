// Package store persists validation run history: run metadata, report
// summaries and flat violation rows. Ingested datasets themselves are never
// stored.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/oncoqa/validata/internal/config"
	"github.com/oncoqa/validata/internal/report"
)

// RunStatus tracks a validation run's lifecycle.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded validation run.
type Run struct {
	ID        string          `json:"id"`
	Datasets  []string        `json:"datasets"`
	Status    RunStatus       `json:"status"`
	Summary   *report.Summary `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus
	Limit  int
}

// Store defines the run-history persistence interface.
type Store interface {
	CreateRun(ctx context.Context, datasets []string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, rep *report.Report) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	ListViolations(ctx context.Context, runID string) ([]report.Row, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store for the configured driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
