package handlers

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/util"
)

type participantRequest struct {
	ParticipantID string `json:"participant_id" binding:"required,uuid"`
}

// ConfirmConsent closes any open session and opens a new one
// POST /api/v1/consent-confirm
func (h *Handlers) ConfirmConsent(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.sessions.ConfirmConsent(c.Request.Context(), participant(c, req.ParticipantID))
	if err != nil {
		respondError(c, "confirm consent", err)
		return
	}

	util.RespondOK(c, gin.H{
		"session_id": session.ID,
		"session":    session,
	})
}

// EnsureSession returns the participant's open session, creating one if
// needed
// POST /api/v1/session-ensure
func (h *Handlers) EnsureSession(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req) {
		return
	}

	session, created, err := h.sessions.EnsureSession(c.Request.Context(), participant(c, req.ParticipantID))
	if err != nil {
		respondError(c, "ensure session", err)
		return
	}

	util.RespondOK(c, gin.H{
		"session_id": session.ID,
		"created":    created,
		"session":    session,
	})
}

type endSessionRequest struct {
	ParticipantID string `json:"participant_id" binding:"omitempty,uuid"`
	SessionID     string `json:"session_id" binding:"omitempty,uuid"`
}

// EndSession closes a session by id or the participant's open session
// POST /api/v1/session-end
func (h *Handlers) EndSession(c *gin.Context) {
	var req endSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	participantID, sessionID := optional(req.ParticipantID), optional(req.SessionID)
	if participantID == nil && sessionID == nil {
		fail(c, apperrors.ValidationError("session_id", "session_id or participant_id is required"))
		return
	}

	in := study.EndSessionInput{}
	if participantID != nil {
		in.ParticipantID = *participantID
		c.Set(util.ParticipantIDKey, in.ParticipantID)
	}
	if sessionID != nil {
		in.SessionID = *sessionID
	}

	session, err := h.sessions.EndSession(c.Request.Context(), in)
	if err != nil {
		respondError(c, "end session", err)
		return
	}
	if session == nil {
		util.RespondOK(c, gin.H{"session_id": nil, "session": nil})
		return
	}

	util.RespondOK(c, gin.H{
		"session_id": session.ID,
		"session":    session,
	})
}

type sessionURI struct {
	SessionID string `uri:"id" json:"session_id" binding:"required,uuid"`
}

// GetSession returns a session row with its counters
// GET /api/v1/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	var uri sessionURI
	if !bindURI(c, &uri) {
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), uri.SessionID)
	if err != nil {
		respondError(c, "load session", err)
		return
	}

	util.RespondOK(c, gin.H{"session": session})
}

// SessionSummary returns the derived per-session metrics
// GET /api/v1/sessions/:id/summary
func (h *Handlers) SessionSummary(c *gin.Context) {
	var uri sessionURI
	if !bindURI(c, &uri) {
		return
	}

	summary, err := h.tracking.Summary(c.Request.Context(), uri.SessionID)
	if err != nil {
		respondError(c, "load summary", err)
		return
	}

	util.RespondOK(c, gin.H{"summary": summary})
}
