package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/util"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an id, reusing an incoming
// X-Request-ID, and echoes it on the response
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(util.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// GinLoggerMiddleware writes one structured line per request once the
// handler is done. Handlers that identify a participant get it logged too.
// 5xx are errors, 4xx warnings, the rest info; /health and /metrics only
// log at debug.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", routeOf(c)),
			logger.WithStatus(status),
			logger.WithIP(c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			logger.WithRequestID(util.GetRequestID(c)),
		}
		if pid := c.GetString(util.ParticipantIDKey); pid != "" {
			fields = append(fields, logger.WithParticipantID(pid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch path := c.Request.URL.Path; {
		case status >= 500:
			logger.Log.Error("request", fields...)
		case status >= 400:
			logger.Log.Warn("request", fields...)
		case path == "/health" || path == "/metrics":
			logger.Log.Debug("request", fields...)
		default:
			logger.Log.Info("request", fields...)
		}
	}
}

// routeOf prefers the matched route template so ids stay out of the field
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
