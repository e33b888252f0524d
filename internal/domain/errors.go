package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthRequired is returned when an operation needs a bearer token and none is set.
	ErrAuthRequired = errors.New("not authenticated")
	// ErrAuthNotConfigured is returned when sign-in is attempted without an OAuth client id.
	ErrAuthNotConfigured = errors.New("google client id not configured")
	// ErrInvalidToken is returned when Google rejects an access token or it was issued to another client.
	ErrInvalidToken = errors.New("invalid access token")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a client-recoverable input error.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field errors were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// UpstreamError is implemented by failures of third-party services.
type UpstreamError interface {
	error
	Upstream() string
}

// InfraError wraps a persistence failure. Its detail is never shown to clients.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUpstream reports whether err carries an UpstreamError.
func IsUpstream(err error) bool {
	var up UpstreamError
	return errors.As(err, &up)
}

// IsInfra reports whether err carries an InfraError.
func IsInfra(err error) bool {
	var inf *InfraError
	return errors.As(err, &inf)
}
