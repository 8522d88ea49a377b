package model

import (
	"fmt"
	"strings"
)

// Standard identifies one of the supported compliance standards.
type Standard string

const (
	StandardTG263 Standard = "tg263"
	StandardICD10 Standard = "icd10"
	StandardICDO  Standard = "icdo"
	StandardCPQR  Standard = "cpqr"
	StandardCPAC  Standard = "cpac"
)

// AllStandards lists every supported standard in canonical order.
var AllStandards = []Standard{
	StandardTG263,
	StandardICD10,
	StandardICDO,
	StandardCPQR,
	StandardCPAC,
}

// ParseStandard converts a user-supplied name into a Standard.
func ParseStandard(s string) (Standard, error) {
	switch Standard(strings.ToLower(strings.TrimSpace(s))) {
	case StandardTG263:
		return StandardTG263, nil
	case StandardICD10:
		return StandardICD10, nil
	case StandardICDO:
		return StandardICDO, nil
	case StandardCPQR:
		return StandardCPQR, nil
	case StandardCPAC:
		return StandardCPAC, nil
	}
	return "", fmt.Errorf("unknown standard %q", s)
}

// ParseStandards converts a list of names, rejecting duplicates.
func ParseStandards(names []string) ([]Standard, error) {
	seen := make(map[Standard]bool, len(names))
	out := make([]Standard, 0, len(names))
	for _, n := range names {
		std, err := ParseStandard(n)
		if err != nil {
			return nil, err
		}
		if seen[std] {
			continue
		}
		seen[std] = true
		out = append(out, std)
	}
	return out, nil
}

// DisplayName returns the standard's conventional written form.
func (s Standard) DisplayName() string {
	switch s {
	case StandardTG263:
		return "TG-263"
	case StandardICD10:
		return "ICD-10"
	case StandardICDO:
		return "ICD-O"
	case StandardCPQR:
		return "CPQR"
	case StandardCPAC:
		return "CPAC"
	}
	return string(s)
}
