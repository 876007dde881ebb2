package util

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key set by the request id middleware
const RequestIDKey = "request_id"

// ParticipantIDKey is set by handlers once a request's participant is known
const ParticipantIDKey = "participant_id"

// GetRequestID returns the request id stored on the context, or "".
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(RequestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// DeviceType buckets a User-Agent header into mobile, tablet or desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}
