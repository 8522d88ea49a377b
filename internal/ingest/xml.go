package ingest

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// ReadXML parses a row-oriented XML document: each child element of the root
// is one record, and that element's children map to columns. elementName
// restricts records to elements with that local name; empty accepts any
// depth-1 element. Non-UTF-8 documents are handled via the declared charset.
func ReadXML(r io.Reader, name, elementName string) (*Dataset, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: unsupported xml charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	ds := &Dataset{Name: name}
	seen := make(map[string]bool)
	depth := 0
	rowIdx := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read xml token in %s", name)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if depth != 2 {
				continue
			}
			if elementName != "" && el.Name.Local != elementName {
				if err := decoder.Skip(); err != nil {
					return nil, eris.Wrapf(err, "ingest: skip xml element in %s", name)
				}
				depth--
				continue
			}
			values, err := decodeRecord(decoder, &el)
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: decode xml record in %s", name)
			}
			depth--
			rowIdx++
			for col := range values {
				if !seen[col] {
					seen[col] = true
					ds.Schema = append(ds.Schema, col)
				}
			}
			ds.Rows = append(ds.Rows, Row{Index: rowIdx, Values: values})
		case xml.EndElement:
			depth--
		}
	}

	if len(ds.Schema) == 0 {
		return nil, eris.Errorf("ingest: %s contains no records", name)
	}

	// Column order in XML follows first appearance, but every row carries the
	// full schema so downstream presence checks see missing values, not
	// missing columns.
	for i := range ds.Rows {
		for _, col := range ds.Schema {
			if _, ok := ds.Rows[i].Values[col]; !ok {
				ds.Rows[i].Values[col] = ""
			}
		}
	}
	return ds, nil
}

// decodeRecord consumes one record element, mapping each child element's
// local name to its character data.
func decodeRecord(decoder *xml.Decoder, start *xml.StartElement) (map[string]string, error) {
	values := make(map[string]string)
	var field string
	var text strings.Builder

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			field = el.Name.Local
			text.Reset()
		case xml.CharData:
			if field != "" {
				text.Write(el)
			}
		case xml.EndElement:
			if el.Name.Local == start.Name.Local {
				return values, nil
			}
			if field != "" {
				values[field] = strings.TrimSpace(text.String())
				field = ""
			}
		}
	}
}
