package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	clienterrors "github.com/zfogg/searchstudy/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse is the {ok:false} envelope
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// APIError represents an API error response
type APIError struct {
	Code       string
	Message    string
	Field      string
	Details    string
	StatusCode int
	RetryAfter int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
	if e.Field != "" {
		msg += " (field: " + e.Field + ")"
	}
	if e.Details != "" {
		msg += " (details: " + e.Details + ")"
	}
	return msg
}

// ErrorType classifies the failure by status
func (e *APIError) ErrorType() clienterrors.ErrorType {
	return clienterrors.FromStatus(e.StatusCode, e.Code, e.Message, e.Field).Type
}

// ParseError parses an error response from the API
func ParseError(resp *resty.Response) error {
	statusCode := resp.StatusCode()
	retryAfter, _ := strconv.Atoi(resp.Header().Get("Retry-After"))

	var errResp ErrorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil && errResp.Code != "" {
		return &APIError{
			Code:       errResp.Code,
			Message:    errResp.Error,
			Field:      errResp.Field,
			Details:    errResp.Details,
			StatusCode: statusCode,
			RetryAfter: retryAfter,
		}
	}

	return &APIError{
		Code:       "UNKNOWN_ERROR",
		Message:    http.StatusText(statusCode),
		Details:    string(resp.Body()),
		StatusCode: statusCode,
		RetryAfter: retryAfter,
	}
}

// IsNotFound checks if error is due to resource not found
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// ToClientError converts err into the client taxonomy
func ToClientError(err error) *clienterrors.ClientError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		out := clienterrors.FromStatus(apiErr.StatusCode, apiErr.Code, apiErr.Message, apiErr.Field)
		out.RetryAfter = apiErr.RetryAfter
		out.Cause = apiErr
		return out
	}
	return clienterrors.Categorize(err)
}

// CheckResponse checks if response is successful and returns error if not
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return clienterrors.Transient("request failed", err)
	}
	if !resp.IsSuccess() {
		return ParseError(resp)
	}
	return nil
}

// ParseResponseBody parses response body into target interface
func ParseResponseBody(body []byte, target interface{}) error {
	return json.Unmarshal(body, target)
}
