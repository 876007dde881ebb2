// Package errors classifies client-side failures into the three classes the
// study flow reacts to differently: validation, transient and state.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType categorizes client errors
type ErrorType string

const (
	// Rejected input: missing field, malformed id, failed attention check.
	ErrorTypeValidation ErrorType = "validation"
	// Backend or network trouble. Final submissions surface it, telemetry drops it.
	ErrorTypeTransient ErrorType = "transient"
	// Broken study flow detected before any network call.
	ErrorTypeState ErrorType = "state"
)

// ClientError is a classified client error
type ClientError struct {
	Type       ErrorType
	Code       string
	Message    string
	Field      string
	StatusCode int
	RetryAfter int
	Suggestion string
	Cause      error
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Field)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType reports the class of e
func (e *ClientError) ErrorType() ErrorType {
	return e.Type
}

// WithSuggestion adds a hint shown next to the message
func (e *ClientError) WithSuggestion(suggestion string) *ClientError {
	e.Suggestion = suggestion
	return e
}

// Validation creates a validation error for field
func Validation(field, message string) *ClientError {
	return &ClientError{Type: ErrorTypeValidation, Field: field, Message: message}
}

// Transient wraps a backend or network failure
func Transient(message string, cause error) *ClientError {
	err := &ClientError{Type: ErrorTypeTransient, Message: message, Cause: cause}
	err.Suggestion = "The study server could not be reached. Your answers are kept locally; try again in a moment."
	return err
}

// State creates a flow error raised before any request is sent
func State(message string) *ClientError {
	return &ClientError{Type: ErrorTypeState, Message: message}
}

// FromStatus classifies an HTTP failure. 400 and 422 are validation, 403, 404
// and 409 mean the request referenced a session or query in the wrong state,
// everything else is transient.
func FromStatus(status int, code, message, field string) *ClientError {
	err := &ClientError{Code: code, Message: message, Field: field, StatusCode: status}
	switch {
	case status == 400 || status == 422:
		err.Type = ErrorTypeValidation
	case status == 403 || status == 404 || status == 409:
		err.Type = ErrorTypeState
	default:
		err.Type = ErrorTypeTransient
	}
	return err
}

type typed interface {
	ErrorType() ErrorType
}

// TypeOf returns the class of err. Unclassified errors are transient.
func TypeOf(err error) ErrorType {
	var t typed
	if errors.As(err, &t) {
		return t.ErrorType()
	}
	return ErrorTypeTransient
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return err != nil && TypeOf(err) == ErrorTypeValidation }

// IsTransient reports whether err is a transient error
func IsTransient(err error) bool { return err != nil && TypeOf(err) == ErrorTypeTransient }

// IsState reports whether err is a state error
func IsState(err error) bool { return err != nil && TypeOf(err) == ErrorTypeState }

// Categorize converts any error into a ClientError
func Categorize(err error) *ClientError {
	if err == nil {
		return nil
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Transient("Request timed out", err)
	case errors.As(err, &netErr):
		return Transient("Network error: "+netErr.Error(), err)
	case strings.Contains(err.Error(), "connection refused"):
		return Transient("Could not connect to the study server", err)
	}

	out := &ClientError{Type: TypeOf(err), Message: err.Error(), Cause: err}
	return out
}

// FormatError returns a user-facing description of err
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	clientErr := Categorize(err)
	var sb strings.Builder
	sb.WriteString("Error (")
	sb.WriteString(string(clientErr.Type))
	sb.WriteString("): ")
	sb.WriteString(clientErr.Error())
	sb.WriteString("\n")

	if clientErr.Suggestion != "" {
		sb.WriteString("Suggestion: ")
		sb.WriteString(clientErr.Suggestion)
		sb.WriteString("\n")
	}
	if clientErr.RetryAfter > 0 {
		sb.WriteString(fmt.Sprintf("Retry in: %d seconds\n", clientErr.RetryAfter))
	}
	return sb.String()
}
