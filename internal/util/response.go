package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the {ok:false} envelope
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("field", apiErr.Field),
		zap.String("path", c.FullPath()),
	}
	if requestID := GetRequestID(c); requestID != "" {
		fields = append(fields, logger.WithRequestID(requestID))
	}

	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error", append(fields, logger.WithStatus(apiErr.Status))...)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error", fields...)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		OK:      false,
		Error:   apiErr.Message,
		Code:    string(apiErr.Code),
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondOK sends {ok:true} merged with the given payload fields
func RespondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
