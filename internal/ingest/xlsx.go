package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the Excel reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads one sheet of an Excel workbook. The first row is the header.
func ReadXLSX(path string, opts XLSXOptions) (*Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: %s sheet %q is empty", path, sheet.Name)
	}

	schema := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, cell := range sheet.Rows[0].Cells {
		schema = append(schema, strings.TrimSpace(cell.String()))
	}

	ds := &Dataset{Name: filepath.Base(path), Schema: schema}
	for i, row := range sheet.Rows[1:] {
		values := make(map[string]string, len(schema))
		for j, col := range schema {
			if j < len(row.Cells) {
				values[col] = row.Cells[j].String()
			} else {
				values[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, Row{Index: i + 1, Values: values})
	}
	return ds, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: xlsx sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: xlsx sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}
