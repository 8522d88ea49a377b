package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oncoqa/validata/internal/codeset"
	"github.com/oncoqa/validata/internal/engine"
	"github.com/oncoqa/validata/internal/ingest"
	"github.com/oncoqa/validata/internal/model"
	"github.com/oncoqa/validata/internal/report"
	"github.com/oncoqa/validata/internal/rules"
	"github.com/oncoqa/validata/internal/store"
)

var (
	validateStandards   []string
	validateFormat      string
	validateOutput      string
	validateConcurrency int
	validateRulesPath   string
	validateSave        bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate dataset files against coding standards",
	Long:  "Reads one or more CSV, XLSX, or XML dataset files, evaluates every applicable rule, and prints a compliance report. Exits nonzero when ERROR violations are found.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cmd.SilenceUsage = true

		registry, err := initRegistry()
		if err != nil {
			return err
		}

		standards := validateStandards
		if len(standards) == 0 {
			standards = cfg.Validation.Standards
		}
		selection, err := model.ParseStandards(standards)
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		ruleSet, err := loadRules(selection)
		if err != nil {
			return err
		}

		concurrency := effectiveConcurrency(validateConcurrency, cfg.Validation.Concurrency)

		eng, err := engine.New(ruleSet, registry,
			engine.WithConcurrency(concurrency),
			engine.WithIdentifierFields(cfg.Validation.IdentifierFields),
		)
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		// Ingest files concurrently; results keep argument order so the
		// report is identical run to run.
		datasets := make([]*ingest.Dataset, len(args))
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, path := range args {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				ds, err := ingest.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "validate: read %s", path)
				}
				datasets[i] = ds
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		rep, err := eng.Validate(ctx, datasets)
		if err != nil {
			if validateSave {
				saveFailedRun(ctx, args, err)
			}
			return eris.Wrap(err, "validate")
		}

		zap.L().Info("validate: run complete",
			zap.Int("datasets", rep.Summary.Datasets),
			zap.Int("records", rep.Summary.Records),
			zap.Int("errors", rep.Summary.Errors),
			zap.Int("warnings", rep.Summary.Warnings),
		)

		if validateSave {
			if err := saveRun(ctx, args, rep); err != nil {
				return err
			}
		}

		if err := writeReport(rep); err != nil {
			return err
		}

		if rep.HasErrors() {
			return eris.Errorf("validate: %d compliance errors found", rep.Summary.Errors)
		}
		return nil
	},
}

// effectiveConcurrency resolves the worker count from the flag, then the
// config. A zero or negative value from either source clamps to 1:
// errgroup.SetLimit(0) would block the first Go call and hang the run.
func effectiveConcurrency(flagVal, cfgVal int) int {
	if flagVal > 0 {
		return flagVal
	}
	if cfgVal > 0 {
		return cfgVal
	}
	return 1
}

// initRegistry loads the code-set registry from the configured directory, or
// the embedded reference release when none is set.
func initRegistry() (*codeset.Registry, error) {
	if cfg.CodeSets.Dir != "" {
		return codeset.Load(cfg.CodeSets.Dir, cfg.CodeSets.Version)
	}
	return codeset.LoadEmbedded()
}

// loadRules loads rule definitions for the selected standards, preferring the
// --rules flag over the configured path over the embedded defaults.
func loadRules(selection []model.Standard) ([]model.Rule, error) {
	path := validateRulesPath
	if path == "" {
		path = cfg.Rules.Path
	}
	if path != "" {
		return rules.LoadFile(path, selection)
	}
	return rules.Load(selection)
}

func writeReport(rep *report.Report) error {
	var out io.Writer = os.Stdout
	if validateOutput != "" {
		f, err := os.Create(validateOutput)
		if err != nil {
			return eris.Wrapf(err, "validate: create %s", validateOutput)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	switch validateFormat {
	case "text", "":
		_, err := io.WriteString(out, rep.FormatText())
		return eris.Wrap(err, "validate: write report")
	case "csv":
		return eris.Wrap(rep.WriteCSV(out), "validate: write report")
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rep), "validate: write report")
	default:
		return eris.Errorf("validate: unknown format %q (expected text, csv, or json)", validateFormat)
	}
}

func saveRun(ctx context.Context, datasets []string, rep *report.Report) error {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return eris.Wrap(err, "validate: init store")
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "validate: migrate store")
	}

	run, err := st.CreateRun(ctx, datasets)
	if err != nil {
		return eris.Wrap(err, "validate: create run")
	}
	if err := st.CompleteRun(ctx, run.ID, rep); err != nil {
		return eris.Wrap(err, "validate: save run")
	}
	zap.L().Info("validate: run saved", zap.String("run_id", run.ID))
	return nil
}

// saveFailedRun records a failed run. Failures here only log; the original
// validation error is what the caller reports.
func saveFailedRun(ctx context.Context, datasets []string, runErr error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		zap.L().Warn("validate: init store", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("validate: migrate store", zap.Error(err))
		return
	}
	run, err := st.CreateRun(ctx, datasets)
	if err != nil {
		zap.L().Warn("validate: create run", zap.Error(err))
		return
	}
	if err := st.FailRun(ctx, run.ID, runErr.Error()); err != nil {
		zap.L().Warn("validate: record failed run", zap.Error(err))
	}
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateStandards, "standards", nil, "standards to validate against (tg263, icd10, icdo, cpqr, cpac); default from config")
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "report format: text, csv, or json")
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "", "write the report to a file instead of stdout")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "rows validated in parallel; default from config")
	validateCmd.Flags().StringVar(&validateRulesPath, "rules", "", "path to a YAML rule definitions file; default embedded rules")
	validateCmd.Flags().BoolVar(&validateSave, "save", false, "record the run in the run-history store")

	rootCmd.AddCommand(validateCmd)
}
