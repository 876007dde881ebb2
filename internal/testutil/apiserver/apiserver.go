// Package apiserver runs the real study router behind an httptest server so
// client packages can be exercised end to end against SQLite.
package apiserver

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/container"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/server"
	"github.com/zfogg/searchstudy/internal/testutil"
	"gorm.io/gorm"
)

// Options tweaks the server under test
type Options struct {
	AttentionCheckMode string
	Search             search.Provider
}

// Server is a running study API
type Server struct {
	*httptest.Server
	DB *gorm.DB
}

// Start serves the study API until the test ends
func Start(tb testing.TB, opts Options) *Server {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(tb)
	cfg := &config.Config{
		RateLimitPerMinute: 10000,
		AttentionCheckMode: opts.AttentionCheckMode,
	}
	c := container.New(cfg).SetDB(db)
	if opts.Search != nil {
		c.SetSearch(opts.Search)
	}

	srv := httptest.NewServer(server.New(c).Router())
	tb.Cleanup(srv.Close)
	return &Server{Server: srv, DB: db}
}
