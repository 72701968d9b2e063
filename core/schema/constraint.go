package schema

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Constraint names reported in ConstraintError.
const (
	ConstraintRequired = "required"
	ConstraintType     = "type"
	ConstraintPattern  = "pattern"
	ConstraintSyntax   = "syntax"
)

// ConstraintError represents a validation failure.
type ConstraintError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a request.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ConstraintError `json:"errors,omitempty"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, constraint string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConstraintError{
		Field:      field,
		Constraint: constraint,
		Value:      value,
		Message:    message,
	})
}

// Error returns a combined error message.
func (r ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidationError wraps an invalid ValidationResult.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Result.Error()
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, constraint string, value any, message string) *ValidationError {
	r := NewValidationResult()
	r.AddError(field, constraint, value, message)
	return &ValidationError{Result: r}
}

// idPattern is compiled once; it is the pattern of every id field.
var idPattern = regexp.MustCompile(IDPattern)

// patterns caches compiled patterns other than IDPattern.
var patterns sync.Map // map[string]*regexp.Regexp

// MatchPattern reports whether s matches pattern. Compiled patterns are
// cached, and lookups take no lock.
func MatchPattern(pattern, s string) bool {
	if pattern == IDPattern {
		return idPattern.MatchString(s)
	}
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp).MatchString(s)
	}
	re, _ := patterns.LoadOrStore(pattern, regexp.MustCompile(pattern))
	return re.(*regexp.Regexp).MatchString(s)
}
