package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/util"
	"github.com/zfogg/searchstudy/pkg/pages"
)

// submissionIDs is the identity half shared by every final submission
type submissionIDs struct {
	ParticipantID string `json:"participant_id" binding:"required,uuid"`
	SessionID     string `json:"session_id" binding:"omitempty,uuid"`
}

type backgroundSurveyRequest struct {
	submissionIDs
	pages.BackgroundSurvey
}

// SubmitBackgroundSurvey stores the background questionnaire
// POST /api/v1/submit-background-survey
func (h *Handlers) SubmitBackgroundSurvey(c *gin.Context) {
	var req backgroundSurveyRequest
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.submissions.SubmitBackgroundSurvey(c.Request.Context(),
		participant(c, req.ParticipantID), optional(req.SessionID), &req.BackgroundSurvey)
	if err != nil {
		respondError(c, "submit background survey", err)
		return
	}

	util.RespondOK(c, gin.H{"id": row.ID})
}

type taskInstructionRequest struct {
	submissionIDs
	pages.TaskInstruction
}

// SubmitTaskInstruction records that the task brief was read
// POST /api/v1/submit-task-instruction
func (h *Handlers) SubmitTaskInstruction(c *gin.Context) {
	var req taskInstructionRequest
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.submissions.SubmitTaskInstruction(c.Request.Context(),
		participant(c, req.ParticipantID), optional(req.SessionID), &req.TaskInstruction)
	if err != nil {
		respondError(c, "submit task instruction", err)
		return
	}

	util.RespondOK(c, gin.H{"id": row.ID})
}

type postTaskSurveyRequest struct {
	submissionIDs
	pages.PostTaskSurvey
}

// SubmitPostTaskSurvey stores the closing questionnaire
// POST /api/v1/submit-post-task-survey
func (h *Handlers) SubmitPostTaskSurvey(c *gin.Context) {
	var req postTaskSurveyRequest
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.submissions.SubmitPostTaskSurvey(c.Request.Context(),
		participant(c, req.ParticipantID), optional(req.SessionID), &req.PostTaskSurvey)
	if err != nil {
		respondError(c, "submit post-task survey", err)
		return
	}

	util.RespondOK(c, gin.H{"id": row.ID})
}

type resultLogRequest struct {
	ParticipantID string `json:"participant_id" binding:"required,uuid"`
	SessionID     string `json:"session_id" binding:"required,uuid"`
	pages.ResultLog
}

// SubmitResultLog stores the participant's search findings. Unlike the
// surveys it needs a session.
// POST /api/v1/result-log
func (h *Handlers) SubmitResultLog(c *gin.Context) {
	var req resultLogRequest
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.submissions.SubmitResultLog(c.Request.Context(),
		participant(c, req.ParticipantID), req.SessionID, &req.ResultLog)
	if err != nil {
		respondError(c, "submit result log", err)
		return
	}

	util.RespondOK(c, gin.H{"id": row.ID})
}
