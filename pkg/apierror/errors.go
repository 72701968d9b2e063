// Package apierror builds and writes STAC API error bodies:
//
//	{"code": "NotFoundError", "description": "...", "fields": [...]}
package apierror

import (
	"fmt"
)

// Error codes.
const (
	CodeValidation  = "ValidationError"
	CodeNotFound    = "NotFoundError"
	CodeConflict    = "ConflictError"
	CodeBadRequest  = "BadRequest"
	CodeNotAllowed  = "MethodNotAllowed"
	CodeBackend     = "BackendError"
	CodeInternal    = "InternalServerError"
	CodeUnavailable = "ServiceUnavailable"
)

// FieldError is one field-level validation detail.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint,omitempty"`
	Message    string `json:"message"`
}

// Error is an API error body. Status is not serialized.
type Error struct {
	Status      int          `json:"-"`
	Code        string       `json:"code"`
	Description string       `json:"description"`
	Fields      []FieldError `json:"fields,omitempty"`
	RequestID   string       `json:"request_id,omitempty"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Description)
}

// Builder provides a fluent API for building Error values.
type Builder struct {
	err Error
}

// New creates a Builder with the given status and code.
func New(status int, code string) *Builder {
	return &Builder{err: Error{Status: status, Code: code}}
}

// Description sets the message.
func (b *Builder) Description(desc string) *Builder {
	b.err.Description = desc
	return b
}

// Descriptionf sets the message with formatting.
func (b *Builder) Descriptionf(format string, args ...any) *Builder {
	b.err.Description = fmt.Sprintf(format, args...)
	return b
}

// Field appends a field-level detail.
func (b *Builder) Field(field, constraint, message string) *Builder {
	b.err.Fields = append(b.err.Fields, FieldError{Field: field, Constraint: constraint, Message: message})
	return b
}

// RequestID sets the request id echoed to the client.
func (b *Builder) RequestID(id string) *Builder {
	b.err.RequestID = id
	return b
}

// Build returns the constructed Error.
func (b *Builder) Build() Error {
	return b.err
}

// Common error constructors

// NotFound creates a 404 error.
func NotFound(desc string) Error {
	return New(404, CodeNotFound).Description(desc).Build()
}

// Conflict creates a 409 error.
func Conflict(desc string) Error {
	return New(409, CodeConflict).Description(desc).Build()
}

// Validation creates a 422 error for a single field.
func Validation(field, message string) Error {
	return New(422, CodeValidation).
		Description("request body failed validation").
		Field(field, "", message).
		Build()
}

// BadRequest creates a 400 error.
func BadRequest(desc string) Error {
	return New(400, CodeBadRequest).Description(desc).Build()
}

// MethodNotAllowed creates a 405 error.
func MethodNotAllowed(method, path string) Error {
	return New(405, CodeNotAllowed).Descriptionf("%s is not allowed on %s", method, path).Build()
}

// Backend creates a 500 error for storage failures.
func Backend(desc string) Error {
	if desc == "" {
		desc = "storage backend failure"
	}
	return New(500, CodeBackend).Description(desc).Build()
}

// Internal creates a 500 error.
func Internal(desc string) Error {
	if desc == "" {
		desc = "An internal error occurred"
	}
	return New(500, CodeInternal).Description(desc).Build()
}

// Unavailable creates a 503 error.
func Unavailable(desc string) Error {
	if desc == "" {
		desc = "Service temporarily unavailable"
	}
	return New(503, CodeUnavailable).Description(desc).Build()
}
