package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationMiddleware propagates X-Correlation-ID into the response, the
// active span and the request context baggage. It falls back to the request
// id and must run after RequestIDMiddleware.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = util.GetRequestID(c)
		}
		if correlationID == "" {
			c.Next()
			return
		}

		c.Set("correlation_id", correlationID)
		c.Header("X-Correlation-ID", correlationID)

		ctx := c.Request.Context()
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(attribute.String("trace.correlation_id", correlationID))
		}

		if member, err := baggage.NewMember("correlation_id", correlationID); err == nil {
			if b, err := baggage.New(member); err == nil {
				ctx = baggage.ContextWithBaggage(ctx, b)
			}
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetCorrelationIDFromContext extracts the correlation id from baggage
func GetCorrelationIDFromContext(ctx context.Context) string {
	return baggage.FromContext(ctx).Member("correlation_id").Value()
}
