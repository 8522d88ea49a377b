package model

import "regexp"

// CheckKind is the tagged variant over the four supported check types. Rules
// are data, not code: the engine dispatches on the kind with a single switch
// so all five standards share one evaluation path.
type CheckKind string

const (
	CheckPresence    CheckKind = "presence"
	CheckFormat      CheckKind = "format"
	CheckMembership  CheckKind = "membership"
	CheckConsistency CheckKind = "consistency"
)

// Severity ranks a violation. ERROR fails the record, WARNING does not.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Relation describes a cross-field consistency constraint within one record:
// when the When field matches (is non-empty, or equals Equals if set), the
// Then field must be non-empty and, if In is set, hold one of its values.
type Relation struct {
	When   string
	Equals string
	Then   string
	In     []string
}

// Rule is one declarative check belonging to a standard. A rule is pure:
// evaluating it never mutates the record or the registry. Rule sets are
// immutable after load; revised standards produce a whole new snapshot.
type Rule struct {
	ID       string
	Standard Standard
	Kind     CheckKind
	Severity Severity

	// Field is the target of presence/format/membership checks.
	Field string

	// AllowNull skips format and membership checks when the value is empty.
	AllowNull bool

	// Pattern is the compiled format-check expression; PatternSrc keeps the
	// original text for violation messages.
	Pattern    *regexp.Regexp
	PatternSrc string

	// Allowed is an inline value set for membership checks that have no
	// backing code set.
	Allowed []string

	// CodeSet names the registry code set for membership checks.
	CodeSet string

	// Relation holds the consistency-check constraint.
	Relation *Relation
}

// Targets returns every field the rule reads, in evaluation order.
func (r Rule) Targets() []string {
	if r.Kind == CheckConsistency && r.Relation != nil {
		return []string{r.Relation.When, r.Relation.Then}
	}
	return []string{r.Field}
}
