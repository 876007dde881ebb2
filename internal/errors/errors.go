package errors

import (
	"fmt"
	"net/http"
)

// APIError is the error half of the {ok:false} response envelope.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"error"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Conflict creates a CONFLICT error
func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// ValidationError creates a VALIDATION_ERROR bound to one request field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

// InvalidUUID reports a malformed participant/session/query id
func InvalidUUID(field string) *APIError {
	e := newError(ErrInvalidUUID, fmt.Sprintf("%s must be a valid UUID", field))
	e.Field = field
	return e
}

// AttentionCheckFailed reports a rejected attention-check answer
func AttentionCheckFailed(field string) *APIError {
	e := newError(ErrAttentionCheck, "attention check failed")
	e.Field = field
	return e
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// SessionClosed reports a write against a session that already ended
func SessionClosed() *APIError {
	return newError(ErrSessionClosed, "session is closed")
}

// UnknownPage reports a page_id with no registered schema
func UnknownPage(pageID string) *APIError {
	e := newError(ErrUnknownPage, fmt.Sprintf("unknown page_id %q", pageID))
	e.Field = "page_id"
	return e
}

// ParticipantMismatch reports a session that belongs to another participant
func ParticipantMismatch() *APIError {
	return &APIError{
		Code:    ErrParticipantAccess,
		Message: "session does not belong to participant",
		Field:   "session_id",
		Status:  http.StatusForbidden,
	}
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}
