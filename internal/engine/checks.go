package engine

import (
	"fmt"
	"strings"

	"github.com/oncoqa/validata/internal/model"
)

// evalRule dispatches a single rule against a single record. It is a pure
// function of (record, rule, registry): no mutation, no cross-record state.
// The returned fieldCount tallies the rule application for the compliance
// summary; a zero-value count means the rule did not apply to this record.
func (e *Engine) evalRule(rec model.Record, rule model.Rule) ([]model.Violation, fieldCount) {
	switch rule.Kind {
	case model.CheckPresence:
		return e.checkPresence(rec, rule)
	case model.CheckFormat:
		return e.checkFormat(rec, rule)
	case model.CheckMembership:
		return e.checkMembership(rec, rule)
	case model.CheckConsistency:
		return e.checkConsistency(rec, rule)
	}
	return nil, fieldCount{}
}

func (e *Engine) checkPresence(rec model.Record, rule model.Rule) ([]model.Violation, fieldCount) {
	v, _ := rec.Get(rule.Field)
	if v != "" {
		return nil, fieldCount{field: rule.Field, valid: true}
	}
	return []model.Violation{{
		RuleID:   rule.ID,
		Standard: rule.Standard,
		Severity: rule.Severity,
		Locator:  rec.Locator(),
		Fields:   []string{rule.Field},
		Message:  "missing required field",
	}}, fieldCount{field: rule.Field}
}

func (e *Engine) checkFormat(rec model.Record, rule model.Rule) ([]model.Violation, fieldCount) {
	v, _ := rec.Get(rule.Field)
	if v == "" {
		// Empty values belong to presence checks; optional fields count as
		// compliant here.
		if rule.AllowNull {
			return nil, fieldCount{field: rule.Field, valid: true}
		}
		return nil, fieldCount{}
	}
	if rule.Pattern.MatchString(v) {
		return nil, fieldCount{field: rule.Field, valid: true}
	}
	return []model.Violation{{
		RuleID:   rule.ID,
		Standard: rule.Standard,
		Severity: rule.Severity,
		Locator:  rec.Locator(),
		Fields:   []string{rule.Field},
		Values:   []string{v},
		Message:  fmt.Sprintf("invalid value %q: expected to match pattern %s", v, rule.PatternSrc),
	}}, fieldCount{field: rule.Field}
}

func (e *Engine) checkMembership(rec model.Record, rule model.Rule) ([]model.Violation, fieldCount) {
	v, _ := rec.Get(rule.Field)
	if v == "" {
		if rule.AllowNull {
			return nil, fieldCount{field: rule.Field, valid: true}
		}
		return nil, fieldCount{}
	}

	if rule.CodeSet != "" {
		return e.checkCodeSet(rec, rule, v)
	}
	return e.checkAllowed(rec, rule, v)
}

func (e *Engine) checkCodeSet(rec model.Record, rule model.Rule, v string) ([]model.Violation, fieldCount) {
	std, _ := model.ParseStandard(rule.CodeSet)
	entry, ok := e.registry.Lookup(std, v)
	if !ok {
		return []model.Violation{{
			RuleID:   rule.ID,
			Standard: rule.Standard,
			Severity: model.SeverityError,
			Locator:  rec.Locator(),
			Fields:   []string{rule.Field},
			Values:   []string{v},
			Message:  fmt.Sprintf("invalid %s code %q: not found in the %s code set", std.DisplayName(), v, std.DisplayName()),
		}}, fieldCount{field: rule.Field}
	}
	if entry.Deprecated() {
		return []model.Violation{{
			RuleID:   rule.ID,
			Standard: rule.Standard,
			Severity: model.SeverityWarning,
			Locator:  rec.Locator(),
			Fields:   []string{rule.Field},
			Values:   []string{v},
			Message:  fmt.Sprintf("%s code %q (%s) is deprecated", std.DisplayName(), v, entry.Description),
		}}, fieldCount{field: rule.Field, valid: true}
	}
	return nil, fieldCount{field: rule.Field, valid: true}
}

func (e *Engine) checkAllowed(rec model.Record, rule model.Rule, v string) ([]model.Violation, fieldCount) {
	for _, allowed := range rule.Allowed {
		if strings.EqualFold(strings.TrimSpace(allowed), v) {
			return nil, fieldCount{field: rule.Field, valid: true}
		}
	}

	msg := fmt.Sprintf("invalid value %q: use one of the standard values: %s",
		v, strings.Join(rule.Allowed, ", "))
	if suggestion, ok := suggest(v, rule.Allowed); ok {
		msg = fmt.Sprintf("invalid value %q: did you mean %q?", v, suggestion)
	}

	return []model.Violation{{
		RuleID:   rule.ID,
		Standard: rule.Standard,
		Severity: rule.Severity,
		Locator:  rec.Locator(),
		Fields:   []string{rule.Field},
		Values:   []string{v},
		Message:  msg,
	}}, fieldCount{field: rule.Field}
}

func (e *Engine) checkConsistency(rec model.Record, rule model.Rule) ([]model.Violation, fieldCount) {
	rel := rule.Relation
	when, _ := rec.Get(rel.When)

	triggered := false
	if rel.Equals != "" {
		triggered = strings.EqualFold(when, rel.Equals)
	} else {
		triggered = when != ""
	}
	if !triggered {
		return nil, fieldCount{}
	}

	then, _ := rec.Get(rel.Then)
	if then == "" {
		return []model.Violation{{
			RuleID:   rule.ID,
			Standard: rule.Standard,
			Severity: rule.Severity,
			Locator:  rec.Locator(),
			Fields:   []string{rel.When, rel.Then},
			Values:   []string{when, then},
			Message:  fmt.Sprintf("field %q is %q but field %q is missing", rel.When, when, rel.Then),
		}}, fieldCount{field: rel.Then}
	}

	if len(rel.In) > 0 {
		ok := false
		for _, allowed := range rel.In {
			if strings.EqualFold(allowed, then) {
				ok = true
				break
			}
		}
		if !ok {
			return []model.Violation{{
				RuleID:   rule.ID,
				Standard: rule.Standard,
				Severity: rule.Severity,
				Locator:  rec.Locator(),
				Fields:   []string{rel.When, rel.Then},
				Values:   []string{when, then},
				Message: fmt.Sprintf("field %q is %q but field %q holds %q, expected one of: %s",
					rel.When, when, rel.Then, then, strings.Join(rel.In, ", ")),
			}}, fieldCount{field: rel.Then}
		}
	}

	return nil, fieldCount{field: rel.Then, valid: true}
}
