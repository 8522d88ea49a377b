package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoqa/validata/internal/model"
)

func buildSample(t *testing.T) *Report {
	t.Helper()
	b := NewBuilder([]model.Standard{model.StandardICD10, model.StandardTG263}, "test-v1")
	b.CountRule(model.StandardICD10)
	b.CountRule(model.StandardICD10)
	b.CountRule(model.StandardTG263)
	b.AddDataset(3)

	// Added out of order and duplicated on purpose.
	v2 := model.Violation{
		RuleID:   "icd10.icd_code.valid",
		Standard: model.StandardICD10,
		Severity: model.SeverityError,
		Locator:  model.Locator{File: "a.csv", Row: 3},
		Fields:   []string{"ICD Code"},
		Message:  "invalid code",
	}
	v1 := model.Violation{
		RuleID:   "icd10.vital_status.presence",
		Standard: model.StandardICD10,
		Severity: model.SeverityError,
		Locator:  model.Locator{File: "a.csv", Row: 1},
		Fields:   []string{"Vital Status"},
		Message:  "missing required field",
	}
	w := model.Violation{
		RuleID:   "icd10.icd_code.valid",
		Standard: model.StandardICD10,
		Severity: model.SeverityWarning,
		Locator:  model.Locator{File: "a.csv", Row: 2},
		Fields:   []string{"ICD Code"},
		Message:  "deprecated code",
	}
	b.AddViolation(v2)
	b.AddViolation(v1)
	b.AddViolation(v2)
	b.AddViolation(w)

	b.AddMalformed(model.Locator{File: "a.csv", Row: 4}, "row is empty")
	b.CountField("ICD Code", true)
	b.CountField("ICD Code", false)
	b.CountField("Vital Status", false)
	b.AddNotApplicable("standard TG-263 not applicable to a.csv: no target fields present")

	return b.Finalize()
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	rep := buildSample(t)

	t.Run("sorted by locator then rule", func(t *testing.T) {
		t.Parallel()
		require.Len(t, rep.Violations, 3)
		assert.Equal(t, 1, rep.Violations[0].Locator.Row)
		assert.Equal(t, 2, rep.Violations[1].Locator.Row)
		assert.Equal(t, 3, rep.Violations[2].Locator.Row)
	})

	t.Run("exact duplicates removed", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, rep.Violations, 3)
	})

	t.Run("summary counts", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 2, rep.Summary.Errors)
		assert.Equal(t, 1, rep.Summary.Warnings)
		assert.Equal(t, 3, rep.Summary.Records)
		assert.Equal(t, 1, rep.Summary.Datasets)
		assert.Equal(t, 1, rep.Summary.MalformedRows)
		assert.True(t, rep.HasErrors())
	})

	t.Run("per standard pass/fail", func(t *testing.T) {
		t.Parallel()
		icd10 := rep.Summary.PerStandard[model.StandardICD10]
		assert.Equal(t, 2, icd10.Rules)
		assert.Equal(t, 2, icd10.Errors)
		assert.Equal(t, 1, icd10.Warnings)
		assert.False(t, icd10.Passed)

		tg := rep.Summary.PerStandard[model.StandardTG263]
		assert.True(t, tg.Passed)
		assert.Zero(t, tg.Errors)
	})

	t.Run("field compliance sorted with rates", func(t *testing.T) {
		t.Parallel()
		require.Len(t, rep.Summary.FieldCompliance, 2)
		assert.Equal(t, "ICD Code", rep.Summary.FieldCompliance[0].Field)
		assert.InDelta(t, 50.0, rep.Summary.FieldCompliance[0].Rate(), 0.001)
		assert.Equal(t, "Vital Status", rep.Summary.FieldCompliance[1].Field)
		assert.InDelta(t, 0.0, rep.Summary.FieldCompliance[1].Rate(), 0.001)
	})

	t.Run("registry version carried", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "test-v1", rep.RegistryVersion)
	})
}

func TestFinalizeDedupeKeepsFirstRecorded(t *testing.T) {
	t.Parallel()

	// Same dedup key (locator + rule + fields) but different messages, as
	// when two input files share a base name. The first recorded violation
	// must survive, every run.
	make2 := func(msg string) model.Violation {
		return model.Violation{
			RuleID:   "icd10.icd_code.valid",
			Standard: model.StandardICD10,
			Severity: model.SeverityError,
			Locator:  model.Locator{File: "a.csv", Row: 2},
			Fields:   []string{"ICD Code"},
			Message:  msg,
		}
	}

	b := NewBuilder([]model.Standard{model.StandardICD10}, "test-v1")
	b.AddViolation(make2("first message"))
	b.AddViolation(make2("second message"))
	rep := b.Finalize()
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, "first message", rep.Violations[0].Message)

	b = NewBuilder([]model.Standard{model.StandardICD10}, "test-v1")
	b.AddViolation(make2("second message"))
	b.AddViolation(make2("first message"))
	rep = b.Finalize()
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, "second message", rep.Violations[0].Message)
}

func TestToRows(t *testing.T) {
	t.Parallel()

	rep := buildSample(t)
	rows := rep.ToRows()
	require.Len(t, rows, 3)
	assert.Equal(t, "ICD-10", rows[0].Standard)
	assert.Equal(t, "ERROR", rows[0].Severity)
	assert.Equal(t, "a.csv:1", rows[0].Locator)
	assert.Equal(t, "Vital Status", rows[0].Fields)
}

func TestFormatTextDeterministic(t *testing.T) {
	t.Parallel()

	a := buildSample(t).FormatText()
	b := buildSample(t).FormatText()
	assert.Equal(t, a, b)

	assert.Contains(t, a, "Compliance Issues Found:")
	assert.Contains(t, a, "[ERROR] a.csv, Row 1, Column 'Vital Status': missing required field")
	assert.Contains(t, a, "ICD Code Compliance: 50.00%")
	assert.Contains(t, a, "Malformed Rows")
	assert.Contains(t, a, "Note: standard TG-263 not applicable")
}

func TestFormatTextCompliant(t *testing.T) {
	t.Parallel()

	b := NewBuilder([]model.Standard{model.StandardICD10}, "v")
	b.AddDataset(2)
	out := b.Finalize().FormatText()
	assert.Contains(t, out, "All records are compliant.")
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	rep := buildSample(t)
	var sb strings.Builder
	require.NoError(t, rep.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "standard,severity,locator,fields,message", lines[0])
	assert.Contains(t, lines[1], "a.csv:1")
}
