package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/metrics"
	"github.com/zfogg/searchstudy/internal/util"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to client IP.
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns the per-IP limit for the tracking API
func DefaultRateLimitConfig(perMinute int) RateLimitConfig {
	if perMinute <= 0 {
		perMinute = 600
	}
	return RateLimitConfig{
		Limit:   perMinute,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	}
}

// SearchRateLimitConfig returns the stricter limit for the search proxy
func SearchRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   60,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	}
}

// WindowCounter is a shared fixed-window counter, such as Redis
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RetryAfter returns seconds to wait for the next token
func (tb *TokenBucket) RetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		return int((1-tb.tokens)/tb.refillRate) + 1
	}
	return 0
}

func (tb *TokenBucket) idleSince(t time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill.Before(t)
}

// RateLimiter keeps one token bucket per key. With a WindowCounter it
// counts in the shared store instead and falls back to the local buckets
// when the store errors.
type RateLimiter struct {
	name    string
	config  RateLimitConfig
	shared  WindowCounter
	buckets map[string]*TokenBucket
	mu      sync.Mutex
}

// NewRateLimiter creates a limiter. shared may be nil.
func NewRateLimiter(name string, config RateLimitConfig, shared WindowCounter) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		name:    name,
		config:  config,
		shared:  shared,
		buckets: make(map[string]*TokenBucket),
	}
}

// Middleware returns the gin handler
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)
		allowed, retryAfter := rl.allow(c.Request.Context(), key)
		if !allowed {
			metrics.Get().RateLimitExceededTotal.WithLabelValues(rl.name).Inc()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			util.RespondWithAPIError(c, errors.RateLimited(""))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, int) {
	if rl.shared != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		n, err := rl.shared.IncrWindow(ctx, rl.name+":"+key, rl.config.Window)
		if err == nil {
			return n <= int64(rl.config.Limit), int(rl.config.Window.Seconds())
		}
		logger.Log.Warn("Shared rate limiter unavailable, using local buckets",
			zap.String("limiter", rl.name),
			zap.Error(err),
		)
	}

	bucket := rl.bucket(key)
	if bucket.Allow() {
		return true, 0
	}
	return false, bucket.RetryAfter()
}

func (rl *RateLimiter) bucket(key string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[key] = bucket
	}
	return bucket
}

// Sweep drops buckets idle for longer than the window and returns how many
// were removed.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.config.Window)
	removed := 0
	for key, b := range rl.buckets {
		if b.idleSince(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every window until ctx is done
func (rl *RateLimiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(rl.config.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Sweep(now)
		}
	}
}
