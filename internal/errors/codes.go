package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrConflict          ErrorCode = "CONFLICT"
	ErrValidation        ErrorCode = "VALIDATION_ERROR"
	ErrInvalidUUID       ErrorCode = "INVALID_UUID"
	ErrAttentionCheck    ErrorCode = "ATTENTION_CHECK_FAILED"
	ErrBadRequest        ErrorCode = "BAD_REQUEST"
	ErrInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrRateLimited       ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail    ErrorCode = "SERVICE_UNAVAILABLE"
	ErrSessionClosed     ErrorCode = "SESSION_CLOSED"
	ErrUnknownPage       ErrorCode = "UNKNOWN_PAGE"
	ErrParticipantAccess ErrorCode = "PARTICIPANT_MISMATCH"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:          http.StatusNotFound,
	ErrConflict:          http.StatusConflict,
	ErrValidation:        http.StatusUnprocessableEntity,
	ErrInvalidUUID:       http.StatusBadRequest,
	ErrAttentionCheck:    http.StatusUnprocessableEntity,
	ErrBadRequest:        http.StatusBadRequest,
	ErrInternalError:     http.StatusInternalServerError,
	ErrRateLimited:       http.StatusTooManyRequests,
	ErrServiceUnavail:    http.StatusServiceUnavailable,
	ErrSessionClosed:     http.StatusConflict,
	ErrUnknownPage:       http.StatusBadRequest,
	ErrParticipantAccess: http.StatusForbidden,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
