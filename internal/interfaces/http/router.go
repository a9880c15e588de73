// Package http assembles the gin engine and HTTP server of the reaction API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ARChemistry/internal/interfaces/http/handlers"
	"github.com/turtacn/ARChemistry/internal/interfaces/http/middleware"
)

// DefaultMetricsPath is where the Prometheus handler is mounted when
// MetricsPath is empty.
const DefaultMetricsPath = "/metrics"

// RouterConfig aggregates handlers, middleware and infrastructure for
// NewRouter.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Gin mode: "debug", "release" or "test".
	Mode string

	// Handlers
	ReactionHandler *handlers.ReactionHandler
	GraphHandler    *handlers.GraphHandler
	LogHandler      *handlers.LogHandler
	HealthHandler   *handlers.HealthHandler

	// Middleware
	RateLimiter     middleware.RateLimiter
	RateLimitConfig middleware.RateLimitConfig
	LoggingConfig   middleware.LoggingConfig
	CORSConfig      *middleware.CORSConfig

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	AppMetrics       *prometheus.AppMetrics
	MetricsPath      string
}

// NewRouter builds the gin engine.  Global middleware runs in the order
// request ID, recovery, CORS, logging, metrics, rate limit.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	if cfg.CORSConfig != nil {
		r.Use(middleware.CORS(*cfg.CORSConfig))
	}
	r.Use(middleware.RequestLogging(logger, cfg.LoggingConfig))
	r.Use(middleware.Metrics(cfg.AppMetrics))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitConfig))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = DefaultMetricsPath
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.ReactionHandler != nil {
		cfg.ReactionHandler.RegisterRoutes(api)
	}
	if cfg.GraphHandler != nil {
		cfg.GraphHandler.RegisterRoutes(api)
	}
	if cfg.LogHandler != nil {
		cfg.LogHandler.RegisterRoutes(api)
	}

	return r
}
