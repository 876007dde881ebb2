package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/metrics"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/util"
	"go.uber.org/zap"
)

type searchQuery struct {
	Q      string `form:"q" binding:"notblank,max=512"`
	Limit  int    `form:"limit,default=10"`
	Offset int    `form:"offset,default=0"`
}

// Search proxies the web-search provider used in the search task
// GET /api/v1/search?q=phone+deals&limit=10&offset=0
func (h *Handlers) Search(c *gin.Context) {
	m := metrics.Get()
	if h.search == nil {
		m.SearchRequestsTotal.WithLabelValues("unavailable").Inc()
		util.RespondWithAPIError(c, apperrors.ServiceUnavailable("search"))
		return
	}

	var req searchQuery
	if !bound(c, c.ShouldBindQuery(&req), "invalid query string") {
		return
	}

	results, err := h.search.Search(c.Request.Context(), strings.TrimSpace(req.Q), search.Options{Limit: req.Limit, Offset: req.Offset})
	if err != nil {
		m.SearchRequestsTotal.WithLabelValues("error").Inc()
		logger.Log.Warn("Search provider failed",
			logger.WithRequestID(util.GetRequestID(c)),
			zap.Error(err),
		)
		util.RespondWithAPIError(c, apperrors.ServiceUnavailable("search"))
		return
	}

	m.SearchRequestsTotal.WithLabelValues("ok").Inc()
	util.RespondOK(c, gin.H{
		"query":   results.Query,
		"total":   results.Total,
		"results": results.Results,
	})
}
