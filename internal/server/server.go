// Package server provides the HTTP API for the insight service.
//
// The server package implements REST endpoints using the Gin framework:
// insight generation, cache invalidation and stats, provider listing and
// validation, plus health and cost metrics.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/internal/catalog"
	"github.com/labelwise/insightd/internal/insight"
	"github.com/labelwise/insightd/internal/store"
	"github.com/labelwise/insightd/pkg/telemetry"
)

// Server is the HTTP server for the insight API
type Server struct {
	service *insight.Service
	store   store.Store
	catalog *catalog.Client // nil when no catalog is configured
	costs   *telemetry.CostTracker
	port    int
	logger  zerolog.Logger
	engine  *gin.Engine
}

// New creates a new HTTP server
func New(service *insight.Service, st store.Store, cat *catalog.Client, costs *telemetry.CostTracker, port int, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// Request ID, logging and recovery middleware
	engine.Use(requestID())
	engine.Use(ginLogger(logger))
	engine.Use(gin.Recovery())

	server := &Server{
		service: service,
		store:   st,
		catalog: cat,
		costs:   costs,
		port:    port,
		logger:  logger,
		engine:  engine,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", s.handleMetrics)

	s.engine.GET("/providers", s.handleProviders)
	s.engine.GET("/providers/:name/validate", s.handleValidateProvider)

	s.engine.POST("/insight", s.handleInsight)
	s.engine.POST("/invalidate", s.handleInvalidate)
	s.engine.GET("/cache/stats", s.handleCacheStats)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info().
		Str("addr", addr).
		Msg("Starting HTTP server")

	return s.engine.Run(addr)
}

// Handler exposes the underlying handler, used by tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

// requestID assigns each request a UUID, echoed in the X-Request-ID header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// ginLogger creates a Gin middleware that logs using zerolog
func ginLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString("request_id")).
			Msg("HTTP request")
	}
}
