package model

import (
	"fmt"
	"sort"
	"strings"
)

// Locator ties a record back to its originating file and row index.
// Row is 1-based and counts data rows (the header row is not a record).
type Locator struct {
	File string `json:"file"`
	Row  int    `json:"row"`
}

func (l Locator) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Row)
}

// Less orders locators by file, then row.
func (l Locator) Less(other Locator) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	return l.Row < other.Row
}

// Record is the canonical in-memory representation of one dataset row.
// It is immutable once constructed; the engine consumes it read-only.
type Record struct {
	fields map[string]string
	names  []string
	loc    Locator
}

// NewRecord builds a Record from a field-name -> value mapping. The map is
// copied so later mutation by the caller cannot leak into the record.
func NewRecord(fields map[string]string, loc Locator) Record {
	cp := make(map[string]string, len(fields))
	names := make([]string, 0, len(fields))
	for k, v := range fields {
		cp[k] = v
		names = append(names, k)
	}
	sort.Strings(names)
	return Record{fields: cp, names: names, loc: loc}
}

// Get returns the value of the named field and whether the field exists.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Has reports whether the named field exists in the record, empty or not.
func (r Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r.fields)
}

// Locator returns the record's source locator.
func (r Record) Locator() Locator {
	return r.loc
}

// Normalize constructs a Record from a raw ingested row. Values are trimmed
// and columns with empty names dropped. It fails with *MalformedRowError when
// the row carries none of the structural identifier columns, or when every
// value is empty; such rows are excluded from validation but never abort the
// run.
func Normalize(raw map[string]string, loc Locator, idFields []string) (Record, error) {
	fields := make(map[string]string, len(raw))
	empty := true
	for k, v := range raw {
		name := strings.TrimSpace(k)
		if name == "" {
			continue
		}
		val := strings.TrimSpace(v)
		if val != "" {
			empty = false
		}
		fields[name] = val
	}

	if empty {
		return Record{}, &MalformedRowError{Locator: loc, Reason: "row is empty"}
	}

	if len(idFields) > 0 {
		found := false
		for _, id := range idFields {
			if _, ok := fields[id]; ok {
				found = true
				break
			}
		}
		if !found {
			return Record{}, &MalformedRowError{
				Locator: loc,
				Reason:  fmt.Sprintf("no identifier column present (expected one of %s)", strings.Join(idFields, ", ")),
			}
		}
	}

	return NewRecord(fields, loc), nil
}
