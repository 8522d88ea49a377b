package model

import "fmt"

// MalformedRowError marks a single row that cannot be normalized into a
// Record. It is recovered per row: the row is excluded from validation and
// counted in the report summary, and the run continues.
type MalformedRowError struct {
	Locator Locator
	Reason  string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %s: %s", e.Locator, e.Reason)
}

// ConfigurationError marks invalid rule or code-set configuration. It is
// fatal and raised before any record is processed — a silently skipped rule
// would produce a false compliance pass.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// RuleLoadError marks a requested standard with no rule definitions
// available.
type RuleLoadError struct {
	Standard Standard
}

func (e *RuleLoadError) Error() string {
	return fmt.Sprintf("no rule definitions available for standard %s", e.Standard.DisplayName())
}
