package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV parses a CSV stream whose first row is the header. Short rows are
// padded with empty values; extra cells beyond the header are dropped.
func ReadCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.Errorf("ingest: %s is empty", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read header of %s", name)
	}

	schema := make([]string, 0, len(header))
	for _, h := range header {
		schema = append(schema, strings.TrimSpace(h))
	}

	ds := &Dataset{Name: name, Schema: schema}
	for i := 1; ; i++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s row %d", name, i)
		}
		values := make(map[string]string, len(schema))
		for j, col := range schema {
			if j < len(row) {
				values[col] = row[j]
			} else {
				values[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, Row{Index: i, Values: values})
	}
	return ds, nil
}
