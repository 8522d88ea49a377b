// Package report aggregates violations into the ordered, deduplicated
// compliance report handed to the rendering layer.
package report

import (
	"sort"

	"github.com/oncoqa/validata/internal/model"
)

// MalformedRow records one row excluded from validation.
type MalformedRow struct {
	Locator model.Locator `json:"locator"`
	Reason  string        `json:"reason"`
}

// StandardSummary holds per-standard outcome counts. Passed means the
// standard produced no ERROR violations; WARNINGs do not affect it.
type StandardSummary struct {
	Rules    int  `json:"rules"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
	Passed   bool `json:"passed"`
}

// FieldCompliance is the valid/total tally for one field across all rows
// where a rule applied to it.
type FieldCompliance struct {
	Field string `json:"field"`
	Valid int    `json:"valid"`
	Total int    `json:"total"`
}

// Rate returns the compliance percentage for the field, 100 when no rule
// ever applied.
func (f FieldCompliance) Rate() float64 {
	if f.Total == 0 {
		return 100
	}
	return float64(f.Valid) / float64(f.Total) * 100
}

// Summary carries the report's aggregate counts.
type Summary struct {
	Datasets        int                                `json:"datasets"`
	Records         int                                `json:"records"`
	MalformedRows   int                                `json:"malformed_rows"`
	Errors          int                                `json:"errors"`
	Warnings        int                                `json:"warnings"`
	PerStandard     map[model.Standard]StandardSummary `json:"per_standard"`
	FieldCompliance []FieldCompliance                  `json:"field_compliance"`
	NotApplicable   []string                           `json:"not_applicable,omitempty"`
}

// Report is the finalized outcome of one validation pass over one ingested
// dataset group. It is frozen once built: violations are sorted by record
// locator then rule ID, exact duplicates removed, and counts computed.
type Report struct {
	RegistryVersion string            `json:"registry_version,omitempty"`
	Violations      []model.Violation `json:"violations"`
	Malformed       []MalformedRow    `json:"malformed_rows,omitempty"`
	Summary         Summary           `json:"summary"`
}

// HasErrors reports whether any ERROR-severity violation is present.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// Row is one flat line of the report, suitable for rendering to any export
// format.
type Row struct {
	Standard string `json:"standard"`
	Severity string `json:"severity"`
	Locator  string `json:"locator"`
	Fields   string `json:"fields"`
	Message  string `json:"message"`
}

// ToRows flattens the report's violations in report order.
func (r *Report) ToRows() []Row {
	rows := make([]Row, 0, len(r.Violations))
	for _, v := range r.Violations {
		rows = append(rows, Row{
			Standard: v.Standard.DisplayName(),
			Severity: string(v.Severity),
			Locator:  v.Locator.String(),
			Fields:   joinFields(v.Fields),
			Message:  v.Message,
		})
	}
	return rows
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}

// Builder accumulates validation outcomes during a single pass. It is not
// safe for concurrent use; parallel evaluations merge their per-row results
// into the builder in deterministic order.
type Builder struct {
	registryVersion string
	standards       []model.Standard
	rulesPerStd     map[model.Standard]int
	violations      []model.Violation
	malformed       []MalformedRow
	compliance      map[string]*FieldCompliance
	notApplicable   []string
	datasets        int
	records         int
}

// NewBuilder creates a Builder for the given standard selection.
func NewBuilder(standards []model.Standard, registryVersion string) *Builder {
	return &Builder{
		registryVersion: registryVersion,
		standards:       standards,
		rulesPerStd:     make(map[model.Standard]int),
		compliance:      make(map[string]*FieldCompliance),
	}
}

// CountRule registers a loaded rule with its standard, applicable or not.
func (b *Builder) CountRule(std model.Standard) {
	b.rulesPerStd[std]++
}

// AddDataset records an ingested dataset and its record count.
func (b *Builder) AddDataset(records int) {
	b.datasets++
	b.records += records
}

// AddViolation appends one violation.
func (b *Builder) AddViolation(v model.Violation) {
	b.violations = append(b.violations, v)
}

// AddMalformed records a row excluded from validation.
func (b *Builder) AddMalformed(loc model.Locator, reason string) {
	b.malformed = append(b.malformed, MalformedRow{Locator: loc, Reason: reason})
}

// CountField tallies one rule application against a field.
func (b *Builder) CountField(field string, valid bool) {
	fc, ok := b.compliance[field]
	if !ok {
		fc = &FieldCompliance{Field: field}
		b.compliance[field] = fc
	}
	fc.Total++
	if valid {
		fc.Valid++
	}
}

// AddNotApplicable records a standard-not-applicable summary note.
func (b *Builder) AddNotApplicable(note string) {
	b.notApplicable = append(b.notApplicable, note)
}

// Finalize freezes the report: canonical ordering, exact-duplicate removal,
// summary counts. The builder must not be reused afterwards.
func (b *Builder) Finalize() *Report {
	// Stable: violations sharing a dedup key keep their merge order, so the
	// survivor of deduplication is always the first one recorded.
	sort.SliceStable(b.violations, func(i, j int) bool {
		return b.violations[i].Less(b.violations[j])
	})

	deduped := make([]model.Violation, 0, len(b.violations))
	seen := make(map[string]bool, len(b.violations))
	for _, v := range b.violations {
		k := v.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, v)
	}

	sort.Slice(b.malformed, func(i, j int) bool {
		return b.malformed[i].Locator.Less(b.malformed[j].Locator)
	})

	perStd := make(map[model.Standard]StandardSummary, len(b.standards))
	for _, std := range b.standards {
		perStd[std] = StandardSummary{Rules: b.rulesPerStd[std], Passed: true}
	}

	summary := Summary{
		Datasets:      b.datasets,
		Records:       b.records,
		MalformedRows: len(b.malformed),
		PerStandard:   perStd,
	}
	for _, v := range deduped {
		ss := perStd[v.Standard]
		switch v.Severity {
		case model.SeverityError:
			summary.Errors++
			ss.Errors++
			ss.Passed = false
		case model.SeverityWarning:
			summary.Warnings++
			ss.Warnings++
		}
		perStd[v.Standard] = ss
	}

	fields := make([]string, 0, len(b.compliance))
	for f := range b.compliance {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		summary.FieldCompliance = append(summary.FieldCompliance, *b.compliance[f])
	}

	sort.Strings(b.notApplicable)
	summary.NotApplicable = b.notApplicable

	return &Report{
		RegistryVersion: b.registryVersion,
		Violations:      deduped,
		Malformed:       b.malformed,
		Summary:         summary,
	}
}
