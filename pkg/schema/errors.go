package schema

import (
	"fmt"

	"github.com/pkg/errors"
)

// Violation is a single schema validation failure.
type Violation struct {
	Path     string `json:"path" yaml:"path"`
	Expected string `json:"expected" yaml:"expected"`
	Given    string `json:"given,omitempty" yaml:"given,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// SchemaViolation reports that a document did not satisfy its schema. Path
// and Expected describe the first violation, all of them are in Violations.
type SchemaViolation struct {
	Schema     string
	Path       string
	Expected   string
	Given      string
	Detail     string
	Violations []Violation
}

func (e *SchemaViolation) Error() string {
	msg := fmt.Sprintf("schema violation in %s at %s: expected %s", e.Schema, e.Path, e.Expected)
	if e.Given != "" {
		msg += ", given " + e.Given
	}
	if len(e.Violations) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Violations)-1)
	}
	return msg
}

// NewViolation builds a violation for invariants that a JSON schema cannot
// express, such as cross-field constraints.
func NewViolation(schemaName, path, expected, given, detail string) *SchemaViolation {
	return &SchemaViolation{
		Schema:   schemaName,
		Path:     path,
		Expected: expected,
		Given:    given,
		Detail:   detail,
		Violations: []Violation{
			{Path: path, Expected: expected, Given: given, Detail: detail},
		},
	}
}

// AsViolation unwraps err to a *SchemaViolation.
func AsViolation(err error) (*SchemaViolation, bool) {
	var sv *SchemaViolation
	if errors.As(err, &sv) {
		return sv, true
	}
	return nil, false
}
