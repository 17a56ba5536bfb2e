package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webextract/api/handler"
	"github.com/use-agent/webextract/api/middleware"
	"github.com/use-agent/webextract/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
// ctx bounds background work started by the middleware.
func NewRouter(
	ctx context.Context,
	ex handler.Extractor,
	gate handler.GateReporter,
	browser handler.BrowserReporter,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(gate, browser, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/extract", handler.Extract(ex, cfg.Tiers.DefaultMaxTier))
	protected.POST("/batch/extract", handler.PostBatch(ex, cfg.Batch, cfg.Tiers.DefaultMaxTier))

	return r
}
