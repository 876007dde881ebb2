// Package handlers exposes the study services over the JSON API. Each
// endpoint validates its body, makes one service call and answers with the
// {ok} envelope.
package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/metrics"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/util"
	"github.com/zfogg/searchstudy/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db          *gorm.DB
	sessions    *study.SessionService
	tracking    *study.TrackingService
	responses   *study.ResponseService
	submissions *study.SubmissionService
	search      search.Provider
}

// NewHandlers builds the study services over db
func NewHandlers(db *gorm.DB, opts study.Options) *Handlers {
	return &Handlers{
		db:          db,
		sessions:    study.NewSessionService(db, opts),
		tracking:    study.NewTrackingService(db, opts),
		responses:   study.NewResponseService(db, opts),
		submissions: study.NewSubmissionService(db, opts),
	}
}

// SetSearchProvider enables GET /search
func (h *Handlers) SetSearchProvider(p search.Provider) {
	h.search = p
}

// bindJSON decodes and validates the request body. A failed binding rule is
// reported against its field; anything else is malformed JSON.
func bindJSON(c *gin.Context, dst interface{}) bool {
	return bound(c, c.ShouldBindJSON(dst), "invalid JSON body")
}

// bindURI validates path parameters
func bindURI(c *gin.Context, dst interface{}) bool {
	return bound(c, c.ShouldBindUri(dst), "invalid path")
}

func bound(c *gin.Context, err error, malformed string) bool {
	if err == nil {
		return true
	}
	if apiErr := validation.FieldError(err); apiErr != nil {
		fail(c, apiErr)
		return false
	}
	fail(c, apperrors.BadRequest(malformed).WithDetails(err.Error()))
	return false
}

// participant captures the request's participant and tags the context
func participant(c *gin.Context, id string) study.ParticipantInfo {
	c.Set(util.ParticipantIDKey, id)
	return study.ParticipantInfo{
		ParticipantID: id,
		DeviceType:    util.DeviceType(c.Request.UserAgent()),
		IPAddress:     c.ClientIP(),
	}
}

// optional turns a blank id into nil
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// fail answers with a client error and counts it
func fail(c *gin.Context, apiErr *apperrors.APIError) {
	metrics.Get().ValidationFailureTotal.WithLabelValues(string(apiErr.Code)).Inc()
	util.RespondWithAPIError(c, apiErr)
}

// respondError maps service errors onto the envelope. Anything unrecognised
// is logged and reported as a 500.
func respondError(c *gin.Context, op string, err error) {
	var apiErr *apperrors.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, study.ErrSessionNotFound):
		apiErr = apperrors.NotFound("session")
		apiErr.Field = "session_id"
	case errors.Is(err, study.ErrQueryNotFound):
		apiErr = apperrors.NotFound("query")
		apiErr.Field = "query_id"
	case errors.Is(err, study.ErrSessionClosed):
		apiErr = apperrors.SessionClosed()
	case errors.Is(err, study.ErrParticipantMismatch):
		apiErr = apperrors.ParticipantMismatch()
	default:
		logger.Log.Error("Request failed",
			zap.String("operation", op),
			logger.WithRequestID(util.GetRequestID(c)),
			zap.Error(err),
		)
		metrics.Get().ErrorsTotal.WithLabelValues("internal", op).Inc()
		util.RespondWithAPIError(c, apperrors.InternalError("failed to "+op))
		return
	}
	fail(c, apiErr)
}
