package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/util"
)

type startQueryRequest struct {
	SessionID      string `json:"session_id" binding:"required,uuid"`
	QueryText      string `json:"query_text" binding:"notblank,max=2048"`
	QueryStructure string `json:"query_structure" binding:"max=32"`
	QueryOrder     int    `json:"query_order"`
}

// StartQuery records a submitted search
// POST /api/v1/query-start
func (h *Handlers) StartQuery(c *gin.Context) {
	var req startQueryRequest
	if !bindJSON(c, &req) {
		return
	}

	query, err := h.tracking.StartQuery(c.Request.Context(), study.StartQueryInput{
		SessionID:      req.SessionID,
		QueryText:      req.QueryText,
		QueryStructure: req.QueryStructure,
		QueryOrder:     req.QueryOrder,
	})
	if err != nil {
		respondError(c, "start query", err)
		return
	}

	util.RespondOK(c, gin.H{
		"query_id":    query.ID,
		"query_order": query.QueryOrder,
	})
}

type endQueryRequest struct {
	QueryID string `json:"query_id" binding:"required,uuid"`
}

// EndQuery stamps the end time of a query
// POST /api/v1/query-end
func (h *Handlers) EndQuery(c *gin.Context) {
	var req endQueryRequest
	if !bindJSON(c, &req) {
		return
	}

	query, err := h.tracking.EndQuery(c.Request.Context(), req.QueryID)
	if err != nil {
		respondError(c, "end query", err)
		return
	}

	util.RespondOK(c, gin.H{
		"query_id":         query.ID,
		"duration_seconds": query.DurationSeconds,
	})
}

type logClickRequest struct {
	QueryID     string `json:"query_id" binding:"required,uuid"`
	ClickedURL  string `json:"clicked_url" binding:"notblank,max=2048"`
	ClickedRank *int   `json:"clicked_rank"`
}

// LogClick records a click on a search result
// POST /api/v1/log-click
func (h *Handlers) LogClick(c *gin.Context) {
	var req logClickRequest
	if !bindJSON(c, &req) {
		return
	}

	click, err := h.tracking.LogClick(c.Request.Context(), study.LogClickInput{
		QueryID:     req.QueryID,
		ClickedURL:  req.ClickedURL,
		ClickedRank: req.ClickedRank,
	})
	if err != nil {
		respondError(c, "log click", err)
		return
	}

	util.RespondOK(c, gin.H{
		"click_id":    click.ID,
		"click_order": click.ClickOrder,
	})
}

type logScrollRequest struct {
	SessionID    string `json:"session_id" binding:"required,uuid"`
	QueryID      string `json:"query_id" binding:"omitempty,uuid"`
	Path         string `json:"path" binding:"max=512"`
	MaxScrollPct int    `json:"max_scroll_pct"`
}

// LogScroll raises the session's scroll depth maximum
// POST /api/v1/log-scroll
func (h *Handlers) LogScroll(c *gin.Context) {
	var req logScrollRequest
	if !bindJSON(c, &req) {
		return
	}
	queryID := optional(req.QueryID)

	depth, err := h.tracking.LogScroll(c.Request.Context(), study.LogScrollInput{
		SessionID:    req.SessionID,
		QueryID:      queryID,
		Path:         req.Path,
		MaxScrollPct: req.MaxScrollPct,
	})
	if err != nil {
		respondError(c, "log scroll", err)
		return
	}

	util.RespondOK(c, gin.H{"scroll_depth_max": depth})
}

type logHoverRequest struct {
	SessionID   string `json:"session_id" binding:"required,uuid"`
	QueryID     string `json:"query_id" binding:"omitempty,uuid"`
	HoveredURL  string `json:"hovered_url" binding:"notblank,max=2048"`
	HoveredRank *int   `json:"hovered_rank"`
	HoverMs     int    `json:"hover_ms"`
}

// LogHover records dwell time over a search result
// POST /api/v1/log-hover
func (h *Handlers) LogHover(c *gin.Context) {
	var req logHoverRequest
	if !bindJSON(c, &req) {
		return
	}
	queryID := optional(req.QueryID)

	event, err := h.tracking.LogHover(c.Request.Context(), study.LogHoverInput{
		SessionID:   req.SessionID,
		QueryID:     queryID,
		HoveredURL:  req.HoveredURL,
		HoveredRank: req.HoveredRank,
		HoverMs:     req.HoverMs,
	})
	if err != nil {
		respondError(c, "log hover", err)
		return
	}

	util.RespondOK(c, gin.H{"hover_id": event.ID})
}
