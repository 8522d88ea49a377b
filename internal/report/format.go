package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// FormatText renders the report in the layout of the compliance printout:
// issues first, then the summary with per-field compliance percentages.
// Output is deterministic for identical reports.
func (r *Report) FormatText() string {
	var b strings.Builder

	if len(r.Violations) == 0 {
		b.WriteString("All records are compliant.\n")
	} else {
		b.WriteString("Compliance Issues Found:\n")
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "[%s] %s, Row %d, Column '%s': %s\n",
				v.Severity, v.Locator.File, v.Locator.Row, joinFields(v.Fields), v.Message)
		}
	}

	if len(r.Malformed) > 0 {
		b.WriteString("\nMalformed Rows (excluded from validation):\n")
		for _, m := range r.Malformed {
			fmt.Fprintf(&b, "%s, Row %d: %s\n", m.Locator.File, m.Locator.Row, m.Reason)
		}
	}

	b.WriteString("\nCompliance Summary:\n")
	fmt.Fprintf(&b, "Datasets: %d, Records: %d, Malformed: %d\n",
		r.Summary.Datasets, r.Summary.Records, r.Summary.MalformedRows)
	fmt.Fprintf(&b, "Violations: %d error(s), %d warning(s)\n",
		r.Summary.Errors, r.Summary.Warnings)
	for _, fc := range r.Summary.FieldCompliance {
		fmt.Fprintf(&b, "%s Compliance: %.2f%%\n", fc.Field, fc.Rate())
	}
	for _, note := range r.Summary.NotApplicable {
		fmt.Fprintf(&b, "Note: %s\n", note)
	}

	return b.String()
}

// WriteCSV writes the flat report rows with a header, one violation per line.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"standard", "severity", "locator", "fields", "message"}); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, row := range r.ToRows() {
		if err := cw.Write([]string{row.Standard, row.Severity, row.Locator, row.Fields, row.Message}); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}
