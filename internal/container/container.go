// Package container holds the server's long-lived dependencies and their
// shutdown hooks.
package container

import (
	"context"
	"strings"
	"sync"

	"github.com/zfogg/searchstudy/internal/cache"
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/middleware"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container implements a small service locator with lifecycle management.
type Container struct {
	cfg    *config.Config
	db     *gorm.DB
	redis  *cache.RedisClient
	search search.Provider

	memoryCache  *cache.MemoryCache
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates an empty container for cfg
func New(cfg *config.Config) *Container {
	return &Container{cfg: cfg, memoryCache: cache.NewMemoryCache()}
}

// Config returns the server configuration
func (c *Container) Config() *config.Config {
	return c.cfg
}

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetRedis registers the Redis client
func (c *Container) SetRedis(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redis = client
	return c
}

// Redis returns the Redis client, or nil when Redis is not configured
func (c *Container) Redis() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redis
}

// SetSearch registers the search provider
func (c *Container) SetSearch(p search.Provider) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = p
	return c
}

// Search returns the search provider, or nil
func (c *Container) Search() search.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.search
}

// SessionCache returns Redis when available and a process-local cache
// otherwise.
func (c *Container) SessionCache() cache.SessionCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.redis != nil {
		return c.redis
	}
	return c.memoryCache
}

// WindowCounter returns the shared rate-limit counter, or nil
func (c *Container) WindowCounter() middleware.WindowCounter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.redis == nil {
		return nil
	}
	return c.redis
}

// StudyOptions builds the options shared by the study services
func (c *Container) StudyOptions() study.Options {
	opts := study.Options{Cache: c.SessionCache()}
	if c.cfg != nil {
		opts.IPHashSalt = c.cfg.IPHashSalt
		opts.AttentionCheck = validation.NewAttentionCheck(c.cfg.AttentionCheckMode)
	}
	return opts
}

// OnCleanup registers a shutdown hook. Hooks run last-registered first.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every shutdown hook, logging failures and continuing.
func (c *Container) Cleanup(ctx context.Context) {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
		}
	}
}

// Validate checks that required dependencies are registered
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	if c.db == nil {
		missing = append(missing, "database")
	}
	if c.cfg == nil {
		missing = append(missing, "configuration")
	}
	if len(missing) > 0 {
		return &MissingDependencyError{Missing: missing}
	}

	if c.redis == nil {
		logger.Log.Info("Redis not configured, using process-local session cache and rate limits")
	}
	if c.search == nil {
		logger.Log.Info("Search provider not configured, /api/v1/search will return 503")
	}
	return nil
}

// MissingDependencyError is returned by Validate when the server cannot
// start
type MissingDependencyError struct {
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return "study server is missing " + strings.Join(e.Missing, " and ")
}
