package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/util"
	"github.com/zfogg/searchstudy/pkg/pages"
)

type pageRequest struct {
	ParticipantID string `json:"participant_id" binding:"required,uuid"`
	PageID        string `json:"page_id" binding:"required,max=64"`
}

type saveResponsesRequest struct {
	pageRequest
	ResponseData json.RawMessage `json:"response_data"`
	ChangeType   string          `json:"change_type"`
}

// SaveResponses upserts a page draft and logs the change
// POST /api/v1/save-responses
func (h *Handlers) SaveResponses(c *gin.Context) {
	var req saveResponsesRequest
	if !bindJSON(c, &req) {
		return
	}

	saved, err := h.responses.Save(c.Request.Context(), study.SaveInput{
		Participant:  participant(c, req.ParticipantID),
		PageID:       pages.PageID(req.PageID),
		ResponseData: req.ResponseData,
		ChangeType:   req.ChangeType,
	})
	if err != nil {
		respondError(c, "save responses", err)
		return
	}

	util.RespondOK(c, gin.H{
		"id":         saved.ID,
		"updated_at": saved.UpdatedAt,
	})
}

// LoadResponses returns the live draft for a page, or null
// POST /api/v1/load-responses
func (h *Handlers) LoadResponses(c *gin.Context) {
	var req pageRequest
	if !bindJSON(c, &req) {
		return
	}
	c.Set(util.ParticipantIDKey, req.ParticipantID)

	saved, err := h.responses.Load(c.Request.Context(), req.ParticipantID, pages.PageID(req.PageID))
	if err != nil {
		respondError(c, "load responses", err)
		return
	}
	if saved == nil {
		util.RespondOK(c, gin.H{"response_data": nil})
		return
	}

	util.RespondOK(c, gin.H{
		"response_data": saved.ResponseData,
		"updated_at":    saved.UpdatedAt,
	})
}

// ClearResponses removes the live draft for a page
// POST /api/v1/clear-responses
func (h *Handlers) ClearResponses(c *gin.Context) {
	var req pageRequest
	if !bindJSON(c, &req) {
		return
	}
	c.Set(util.ParticipantIDKey, req.ParticipantID)

	cleared, err := h.responses.Clear(c.Request.Context(), req.ParticipantID, pages.PageID(req.PageID))
	if err != nil {
		respondError(c, "clear responses", err)
		return
	}

	util.RespondOK(c, gin.H{"cleared": cleared})
}
