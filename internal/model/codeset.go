package model

// CodeStatus marks whether a code is currently assignable.
type CodeStatus string

const (
	CodeActive     CodeStatus = "active"
	CodeDeprecated CodeStatus = "deprecated"
)

// CodeSetEntry is one (code, description, status) row of a versioned
// reference code set. Codes are unique within one code-set version.
type CodeSetEntry struct {
	Code        string     `json:"code"`
	Description string     `json:"description"`
	Status      CodeStatus `json:"status"`
}

// Deprecated reports whether the code is valid but no longer assignable.
func (e CodeSetEntry) Deprecated() bool {
	return e.Status == CodeDeprecated
}
