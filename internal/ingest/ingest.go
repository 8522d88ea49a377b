// Package ingest reads CSV, Excel and XML files into the common tabular
// representation consumed by the validation engine.
package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Row is one raw ingested row: column name -> raw string value, plus the
// 1-based data row index in the source file.
type Row struct {
	Index  int
	Values map[string]string
}

// Dataset is one ingested file: its declared schema (column names present,
// first-seen order) and raw rows. The engine never parses files itself.
type Dataset struct {
	Name   string
	Schema []string
	Rows   []Row
}

// HasColumn reports whether the dataset schema declares the column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Schema {
		if c == name {
			return true
		}
	}
	return false
}

// ReadFile loads a dataset, dispatching on the file extension. Supported
// formats are .csv, .xlsx and .xml.
func ReadFile(path string) (*Dataset, error) {
	name := filepath.Base(path)

	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		ds, err = ReadCSV(f, name)
	case ".xlsx":
		ds, err = ReadXLSX(path, XLSXOptions{})
	case ".xml":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		ds, err = ReadXML(f, name, "")
	default:
		return nil, eris.Errorf("ingest: unsupported file format %q (use CSV, Excel, or XML)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("ingest: loaded dataset",
		zap.String("file", name),
		zap.Int("columns", len(ds.Schema)),
		zap.Int("rows", len(ds.Rows)),
	)
	return ds, nil
}
