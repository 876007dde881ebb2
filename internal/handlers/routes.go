package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the study API on r
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.POST("/consent-confirm", h.ConfirmConsent)
	r.POST("/session-ensure", h.EnsureSession)
	r.POST("/session-end", h.EndSession)
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/sessions/:id/summary", h.SessionSummary)

	r.POST("/query-start", h.StartQuery)
	r.POST("/query-end", h.EndQuery)
	r.POST("/log-click", h.LogClick)
	r.POST("/log-scroll", h.LogScroll)
	r.POST("/log-hover", h.LogHover)

	r.POST("/result-log", h.SubmitResultLog)
	r.POST("/submit-background-survey", h.SubmitBackgroundSurvey)
	r.POST("/submit-task-instruction", h.SubmitTaskInstruction)
	r.POST("/submit-post-task-survey", h.SubmitPostTaskSurvey)

	r.POST("/save-responses", h.SaveResponses)
	r.POST("/load-responses", h.LoadResponses)
	r.POST("/clear-responses", h.ClearResponses)
}

// RegisterSearchRoutes mounts the search proxy behind its own middleware,
// typically a stricter rate limit
func (h *Handlers) RegisterSearchRoutes(r gin.IRouter, mw ...gin.HandlerFunc) {
	r.GET("/search", append(mw, h.Search)...)
}
