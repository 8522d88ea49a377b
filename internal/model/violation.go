package model

import "strings"

// Violation is the immutable fact that one rule failed on one record. It
// references exactly one rule (by ID) and one record (by locator).
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Standard Standard `json:"standard"`
	Severity Severity `json:"severity"`
	Locator  Locator  `json:"locator"`
	Fields   []string `json:"fields"`
	Values   []string `json:"values,omitempty"`
	Message  string   `json:"message"`
}

// Key identifies exact duplicates: same record, same rule, same fields.
func (v Violation) Key() string {
	return v.Locator.String() + "|" + v.RuleID + "|" + strings.Join(v.Fields, ",")
}

// Less orders violations by record locator, then rule ID, then fields. This
// is the report's canonical ordering and must stay deterministic.
func (v Violation) Less(other Violation) bool {
	if v.Locator != other.Locator {
		return v.Locator.Less(other.Locator)
	}
	if v.RuleID != other.RuleID {
		return v.RuleID < other.RuleID
	}
	return strings.Join(v.Fields, ",") < strings.Join(other.Fields, ",")
}
