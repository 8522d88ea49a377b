// Package codeset holds the versioned reference code sets (ICD-10, ICD-O)
// that membership rules look codes up in. A registry is an immutable snapshot
// built once at startup and shared by reference across parallel record
// evaluations; a version bump replaces the whole snapshot atomically.
package codeset

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/oncoqa/validata/internal/model"
)

// Registry answers code lookups in O(1) expected time per code. No mutation
// API is exposed; construction is the only write path.
type Registry struct {
	version string
	sets    map[model.Standard]map[string]model.CodeSetEntry
}

// New builds a Registry from per-standard entry lists. Duplicate codes within
// one set are a load error, not a silent overwrite.
func New(version string, sets map[model.Standard][]model.CodeSetEntry) (*Registry, error) {
	r := &Registry{
		version: version,
		sets:    make(map[model.Standard]map[string]model.CodeSetEntry, len(sets)),
	}
	for std, entries := range sets {
		m := make(map[string]model.CodeSetEntry, len(entries))
		for _, e := range entries {
			if e.Code == "" {
				return nil, eris.Errorf("codeset: empty code in set %s", std)
			}
			if _, dup := m[e.Code]; dup {
				return nil, eris.Errorf("codeset: duplicate code %q in set %s", e.Code, std)
			}
			m[e.Code] = e
		}
		r.sets[std] = m
	}
	return r, nil
}

// Version returns the registry's reference-source version.
func (r *Registry) Version() string {
	return r.version
}

// Has reports whether the registry carries a code set for the standard.
func (r *Registry) Has(standard model.Standard) bool {
	_, ok := r.sets[standard]
	return ok
}

// Lookup returns the entry for a code within a standard's set.
func (r *Registry) Lookup(standard model.Standard, code string) (model.CodeSetEntry, bool) {
	set, ok := r.sets[standard]
	if !ok {
		return model.CodeSetEntry{}, false
	}
	e, ok := set[code]
	return e, ok
}

// IsValid reports whether the code exists in the standard's set, regardless
// of deprecation status.
func (r *Registry) IsValid(standard model.Standard, code string) bool {
	_, ok := r.Lookup(standard, code)
	return ok
}

// Standards returns the standards with loaded code sets, sorted.
func (r *Registry) Standards() []model.Standard {
	out := make([]model.Standard, 0, len(r.sets))
	for std := range r.sets {
		out = append(out, std)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns the number of codes loaded for a standard.
func (r *Registry) Count(standard model.Standard) int {
	return len(r.sets[standard])
}

// Entries returns a standard's entries sorted by code. Intended for the CLI
// listing surface, not the validation hot path.
func (r *Registry) Entries(standard model.Standard) []model.CodeSetEntry {
	set := r.sets[standard]
	out := make([]model.CodeSetEntry, 0, len(set))
	for _, e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
