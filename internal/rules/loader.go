// Package rules loads declarative validation rule definitions. Rules are
// data, not code: each standard is a collection of the four check kinds and
// the engine serves all five standards without per-standard branching.
package rules

import (
	_ "embed"
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/oncoqa/validata/internal/codeset"
	"github.com/oncoqa/validata/internal/model"
)

// Default rule definitions for TG-263, ICD-10, ICD-O, CPQR and CPAC. The
// thresholds and grammars here are configuration supplied by domain review,
// not engine behavior; site overrides go through LoadFile.
//
//go:embed defaults/rules.yaml
var defaultRules []byte

type document struct {
	Version   string                `yaml:"version"`
	Standards map[string][]ruleSpec `yaml:"standards"`
}

type ruleSpec struct {
	ID        string        `yaml:"id"`
	Kind      string        `yaml:"kind"`
	Field     string        `yaml:"field"`
	Severity  string        `yaml:"severity"`
	AllowNull bool          `yaml:"allow_null"`
	Pattern   string        `yaml:"pattern"`
	Allowed   []string      `yaml:"allowed"`
	CodeSet   string        `yaml:"code_set"`
	Relation  *relationSpec `yaml:"relation"`
}

type relationSpec struct {
	When   string   `yaml:"when"`
	Equals string   `yaml:"equals"`
	Then   string   `yaml:"then"`
	In     []string `yaml:"in"`
}

// Load returns the embedded default rules for the selected standards,
// in definition order. A selected standard with no definitions fails with
// *model.RuleLoadError.
func Load(selection []model.Standard) ([]model.Rule, error) {
	return parse(defaultRules, selection, "embedded defaults")
}

// LoadFile loads rule definitions from a site-specific YAML file instead of
// the embedded defaults.
func LoadFile(path string, selection []model.Standard) ([]model.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	return parse(data, selection, path)
}

func parse(data []byte, selection []model.Standard, source string) ([]model.Rule, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", source)
	}

	var out []model.Rule
	for _, std := range selection {
		specs, ok := doc.Standards[string(std)]
		if !ok || len(specs) == 0 {
			return nil, &model.RuleLoadError{Standard: std}
		}
		for _, spec := range specs {
			rule, err := spec.compile(std)
			if err != nil {
				return nil, err
			}
			out = append(out, rule)
		}
	}

	zap.L().Debug("rules: loaded",
		zap.Int("rules", len(out)),
		zap.String("version", doc.Version),
		zap.String("source", source),
	)
	return out, nil
}

func (s ruleSpec) compile(std model.Standard) (model.Rule, error) {
	if s.ID == "" {
		return model.Rule{}, eris.Errorf("rules: %s: rule without id", std)
	}

	rule := model.Rule{
		ID:        s.ID,
		Standard:  std,
		Severity:  model.SeverityError,
		Field:     s.Field,
		AllowNull: s.AllowNull,
		Allowed:   s.Allowed,
		CodeSet:   s.CodeSet,
	}

	switch strings.ToLower(s.Severity) {
	case "", "error":
	case "warning":
		rule.Severity = model.SeverityWarning
	default:
		return model.Rule{}, eris.Errorf("rules: %s: unknown severity %q", s.ID, s.Severity)
	}

	switch model.CheckKind(s.Kind) {
	case model.CheckPresence:
		rule.Kind = model.CheckPresence
		if s.Field == "" {
			return model.Rule{}, eris.Errorf("rules: %s: presence check needs a field", s.ID)
		}
	case model.CheckFormat:
		rule.Kind = model.CheckFormat
		if s.Field == "" || s.Pattern == "" {
			return model.Rule{}, eris.Errorf("rules: %s: format check needs field and pattern", s.ID)
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return model.Rule{}, eris.Wrapf(err, "rules: %s: compile pattern", s.ID)
		}
		rule.Pattern = re
		rule.PatternSrc = s.Pattern
	case model.CheckMembership:
		rule.Kind = model.CheckMembership
		if s.Field == "" {
			return model.Rule{}, eris.Errorf("rules: %s: membership check needs a field", s.ID)
		}
		if s.CodeSet == "" && len(s.Allowed) == 0 {
			return model.Rule{}, eris.Errorf("rules: %s: membership check needs code_set or allowed values", s.ID)
		}
	case model.CheckConsistency:
		rule.Kind = model.CheckConsistency
		if s.Relation == nil || s.Relation.When == "" || s.Relation.Then == "" {
			return model.Rule{}, eris.Errorf("rules: %s: consistency check needs relation when/then", s.ID)
		}
		rule.Relation = &model.Relation{
			When:   s.Relation.When,
			Equals: s.Relation.Equals,
			Then:   s.Relation.Then,
			In:     s.Relation.In,
		}
	default:
		return model.Rule{}, eris.Errorf("rules: %s: unknown check kind %q", s.ID, s.Kind)
	}

	return rule, nil
}

// ValidateAgainst checks every membership rule's code-set reference against
// the registry. A rule naming a missing code set fails the whole run with
// *model.ConfigurationError before any record is processed.
func ValidateAgainst(rls []model.Rule, registry *codeset.Registry) error {
	for _, r := range rls {
		if r.Kind != model.CheckMembership || r.CodeSet == "" {
			continue
		}
		std, err := model.ParseStandard(r.CodeSet)
		if err != nil || !registry.Has(std) {
			return &model.ConfigurationError{
				Reason: "rule " + r.ID + " references unknown code set " + r.CodeSet,
			}
		}
	}
	return nil
}

// IsRuleLoadErr reports whether err is a missing-definitions error.
func IsRuleLoadErr(err error) bool {
	var rle *model.RuleLoadError
	return errors.As(err, &rle)
}
