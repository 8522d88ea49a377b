// Package engine applies declarative compliance rules to ingested records
// and collects violations into a report. One engine instance serves one
// immutable (rule set, code-set registry) snapshot; validation runs are pure
// and deterministic over their inputs.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oncoqa/validata/internal/codeset"
	"github.com/oncoqa/validata/internal/ingest"
	"github.com/oncoqa/validata/internal/model"
	"github.com/oncoqa/validata/internal/report"
	"github.com/oncoqa/validata/internal/rules"
)

// DefaultIdentifierFields are the structural columns at least one of which
// every record must carry.
var DefaultIdentifierFields = []string{"Patient ID", "Treatment ID"}

// Engine validates records against an immutable rule set and registry.
type Engine struct {
	rules       []model.Rule
	standards   []model.Standard
	registry    *codeset.Registry
	idFields    []string
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets the number of records evaluated in parallel. Values
// below 2 keep the pass single-threaded.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithIdentifierFields overrides the structural identifier columns required
// by record normalization.
func WithIdentifierFields(fields []string) Option {
	return func(e *Engine) {
		if len(fields) > 0 {
			e.idFields = fields
		}
	}
}

// New builds an Engine after verifying the rule configuration against the
// registry. A rule referencing a nonexistent code set fails here with
// *model.ConfigurationError, before any record is processed.
func New(ruleSet []model.Rule, registry *codeset.Registry, opts ...Option) (*Engine, error) {
	if err := rules.ValidateAgainst(ruleSet, registry); err != nil {
		return nil, err
	}

	e := &Engine{
		rules:       ruleSet,
		registry:    registry,
		idFields:    DefaultIdentifierFields,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[model.Standard]bool)
	for _, r := range ruleSet {
		if !seen[r.Standard] {
			seen[r.Standard] = true
			e.standards = append(e.standards, r.Standard)
		}
	}
	return e, nil
}

// rowResult carries one record's outcome; results are merged into the report
// in row order so parallel completion order never leaks into the output.
type rowResult struct {
	malformed  *model.MalformedRowError
	violations []model.Violation
	counts     []fieldCount
}

type fieldCount struct {
	field string
	valid bool
}

// Validate runs a single validation pass over the datasets and produces the
// finalized report. Each record is evaluated independently; rules never
// compare across records.
func (e *Engine) Validate(ctx context.Context, datasets []*ingest.Dataset) (*report.Report, error) {
	b := report.NewBuilder(e.standards, e.registry.Version())
	for _, r := range e.rules {
		b.CountRule(r.Standard)
	}

	for _, ds := range datasets {
		if err := e.validateDataset(ctx, ds, b); err != nil {
			return nil, err
		}
	}

	rep := b.Finalize()
	zap.L().Info("engine: validation complete",
		zap.Int("datasets", rep.Summary.Datasets),
		zap.Int("records", rep.Summary.Records),
		zap.Int("errors", rep.Summary.Errors),
		zap.Int("warnings", rep.Summary.Warnings),
		zap.Int("malformed", rep.Summary.MalformedRows),
	)
	return rep, nil
}

func (e *Engine) validateDataset(ctx context.Context, ds *ingest.Dataset, b *report.Builder) error {
	b.AddDataset(len(ds.Rows))

	applicable := e.applicableRules(ds)

	// A standard none of whose rule targets were ever collected gets one
	// summary note instead of a violation per row.
	applicablePerStd := make(map[model.Standard]int)
	for _, r := range applicable {
		applicablePerStd[r.Standard]++
	}
	for _, std := range e.standards {
		if applicablePerStd[std] == 0 {
			b.AddNotApplicable(fmt.Sprintf(
				"standard %s not applicable to %s: no target fields present",
				std.DisplayName(), ds.Name,
			))
		}
	}

	results := make([]rowResult, len(ds.Rows))

	if e.concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for i := range ds.Rows {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.evalRow(ds.Name, ds.Rows[i], applicable)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i := range ds.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.evalRow(ds.Name, ds.Rows[i], applicable)
		}
	}

	// Merge in row order: the report's ordering guarantee must hold
	// regardless of worker completion order.
	for _, res := range results {
		if res.malformed != nil {
			b.AddMalformed(res.malformed.Locator, res.malformed.Reason)
			continue
		}
		for _, v := range res.violations {
			b.AddViolation(v)
		}
		for _, c := range res.counts {
			b.CountField(c.field, c.valid)
		}
	}
	return nil
}

// applicableRules filters the rule set down to rules all of whose target
// fields exist in the dataset schema. A rule whose targets were never
// collected is skipped for the whole run, not reported per row.
func (e *Engine) applicableRules(ds *ingest.Dataset) []model.Rule {
	out := make([]model.Rule, 0, len(e.rules))
	for _, r := range e.rules {
		ok := true
		for _, f := range r.Targets() {
			if !ds.HasColumn(f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) evalRow(file string, row ingest.Row, applicable []model.Rule) rowResult {
	loc := model.Locator{File: file, Row: row.Index}

	rec, err := model.Normalize(row.Values, loc, e.idFields)
	if err != nil {
		mre, ok := err.(*model.MalformedRowError)
		if !ok {
			mre = &model.MalformedRowError{Locator: loc, Reason: err.Error()}
		}
		return rowResult{malformed: mre}
	}

	var res rowResult
	for _, rule := range applicable {
		violations, counted := e.evalRule(rec, rule)
		res.violations = append(res.violations, violations...)
		if counted.field != "" {
			res.counts = append(res.counts, counted)
		}
	}
	return res
}
