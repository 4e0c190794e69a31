// Package api provides the HTTP control endpoints and the WebSocket push
// channel for the shared countdown timer.
package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ryzhenkov/countd/internal/logger"
	"github.com/ryzhenkov/countd/internal/metrics"
	"github.com/ryzhenkov/countd/internal/store"
	"github.com/ryzhenkov/countd/internal/timer"
)

type RESTServer struct {
	router     *gin.Engine
	httpServer *http.Server
	timer      *timer.Timer
	store      *store.Store
	hub        *WebSocketHub
	metrics    *metrics.MetricsService
	startTime  time.Time
}

// ServerDeps contains all dependencies required for the REST server
type ServerDeps struct {
	Timer   *timer.Timer
	Store   *store.Store
	Hub     *WebSocketHub
	Metrics *metrics.MetricsService
}

func NewRESTServer(deps ServerDeps) *RESTServer {
	// Set Gin to release mode for production (suppresses debug warnings)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Request ID middleware for correlation/tracing
	r.Use(func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	})

	// Custom recovery middleware with enhanced logging
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		reqID := c.GetString("request_id")
		logger.Errorf("[PANIC RECOVERY] request_id=%s path=%s method=%s error=%v",
			reqID, c.Request.URL.Path, c.Request.Method, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      ErrMsgInternalError,
			"request_id": reqID,
		})
	}))

	// CORS middleware - configurable via COUNTD_CORS_ORIGIN env var.
	// If not set, no CORS header is emitted and browsers enforce same-origin.
	corsOrigins := os.Getenv("COUNTD_CORS_ORIGIN")
	allowedOrigins := make(map[string]bool)
	if corsOrigins != "" {
		for _, origin := range strings.Split(corsOrigins, ",") {
			allowedOrigins[strings.TrimSpace(origin)] = true
		}
	}

	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if corsOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowedOrigins[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	s := &RESTServer{
		router:    r,
		timer:     deps.Timer,
		store:     deps.Store,
		hub:       deps.Hub,
		metrics:   deps.Metrics,
		startTime: time.Now(),
	}

	s.setupRoutes()

	return s
}

func (s *RESTServer) setupRoutes() {
	// Control endpoints: each maps 1:1 onto a state machine operation and
	// persists synchronously before replying.
	s.router.POST("/reset", s.handleReset)
	s.router.POST("/start", s.handleStart)
	s.router.POST("/pause", s.handlePause)
	s.router.POST("/adjust", s.handleAdjust)
	s.router.POST("/set", s.handleSet)
	s.router.GET("/get", s.handleGet)

	// Push channel
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleConnection(c)
	})

	s.router.GET("/healthz", s.handleHealthz)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func (s *RESTServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, draining in-flight
// requests until the context expires.
func (s *RESTServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
