// Package server assembles the HTTP router and runs it with graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/searchstudy/internal/container"
	"github.com/zfogg/searchstudy/internal/handlers"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/metrics"
	"github.com/zfogg/searchstudy/internal/middleware"
	"go.uber.org/zap"
)

const serviceName = "searchstudy-api"

// Server is the study API
type Server struct {
	container *container.Container
	router    *gin.Engine
	handlers  *handlers.Handlers
	limiters  []*middleware.RateLimiter
}

// New builds the router from the container's dependencies
func New(c *container.Container) *Server {
	cfg := c.Config()
	metrics.Initialize()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{container: c, router: gin.New()}
	s.handlers = handlers.NewHandlers(c.DB(), c.StudyOptions())
	if p := c.Search(); p != nil {
		s.handlers.SetSearchProvider(p)
	}

	r := s.router
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	if cfg.OTelEnabled {
		r.Use(middleware.TracingMiddleware(serviceName))
	}
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/health", s.handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiLimiter := middleware.NewRateLimiter("api", middleware.DefaultRateLimitConfig(cfg.RateLimitPerMinute), c.WindowCounter())
	searchLimiter := middleware.NewRateLimiter("search", middleware.SearchRateLimitConfig(), c.WindowCounter())
	s.limiters = []*middleware.RateLimiter{apiLimiter, searchLimiter}

	api := r.Group("/api/v1")
	api.Use(apiLimiter.Middleware())
	s.handlers.RegisterRoutes(api)
	s.handlers.RegisterSearchRoutes(api, searchLimiter.Middleware())

	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID", "X-Correlation-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID", "X-Correlation-ID", "Retry-After"}
	cfg.MaxAge = 12 * time.Hour

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.container.Config()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	for _, l := range s.limiters {
		go l.RunSweeper(sweepCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Study API listening", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info("Server exited")
	return nil
}
