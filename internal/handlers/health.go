package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/database"
)

// Health reports liveness including a database ping
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Health(ctx, h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ok":       false,
			"status":   "unhealthy",
			"database": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
