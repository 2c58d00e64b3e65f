// Package api exposes the connectivity status, feature availability, and
// deferred-operation queue over HTTP for the dashboard frontend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dashlens/resilience-core/internal/degradation"
	"github.com/dashlens/resilience-core/internal/detector"
	"github.com/dashlens/resilience-core/internal/fallback"
	"github.com/dashlens/resilience-core/internal/features"
	"github.com/dashlens/resilience-core/pkg/config"
	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
)

// Server is the status API HTTP server.
type Server struct {
	cfg      *config.Config
	det      *detector.Detector
	degrader *degradation.Controller
	features *features.Registry
	fallback *fallback.Manager
	logger   *logging.Logger
	metrics  *metrics.Metrics
	http     *http.Server
	started  time.Time
}

// NewServer wires the HTTP routes over the given components.
func NewServer(cfg *config.Config, det *detector.Detector, degrader *degradation.Controller, registry *features.Registry, fb *fallback.Manager, logger *logging.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = &metrics.Metrics{}
	}

	s := &Server{
		cfg:      cfg,
		det:      det,
		degrader: degrader,
		features: registry,
		fallback: fb,
		logger:   logger,
		metrics:  m,
		started:  time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", s.handleHealth)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", s.handleStatus)
		v1.POST("/status/check", s.handleForceCheck)
		v1.GET("/network", s.handleNetwork)
		v1.GET("/service", s.handleService)
		v1.GET("/history", s.handleHistory)
		v1.GET("/features", s.handleFeatures)
		v1.GET("/features/:id", s.handleFeature)
		v1.GET("/queue", s.handleQueue)
		v1.DELETE("/queue/:id", s.handleQueueRemove)
		v1.GET("/degradation", s.handleDegradation)
		v1.PUT("/config", s.handleUpdateConfig)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("status API listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.det.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":             snap,
		"degradation_level":  s.degrader.Level().String(),
		"connection_quality": s.det.ConnectionQuality(),
	})
}

func (s *Server) handleForceCheck(c *gin.Context) {
	snap, err := s.det.ForceCheck(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": snap})
}

func (s *Server) handleNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, s.det.NetworkInfo())
}

func (s *Server) handleService(c *gin.Context) {
	c.JSON(http.StatusOK, s.det.ServiceStatus())
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": s.det.History()})
}

func (s *Server) handleFeatures(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"level":    s.features.Level().String(),
		"features": s.features.All(),
	})
}

func (s *Server) handleFeature(c *gin.Context) {
	id := c.Param("id")
	state, ok := s.features.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown feature"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleQueue(c *gin.Context) {
	ops := s.fallback.PendingOperations()
	c.JSON(http.StatusOK, gin.H{
		"count":      len(ops),
		"operations": ops,
	})
}

func (s *Server) handleQueueRemove(c *gin.Context) {
	id := c.Param("id")
	if !s.fallback.RemoveOperation(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": id})
}

func (s *Server) handleDegradation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"level":          s.degrader.Level().String(),
		"previous_level": s.degrader.PreviousLevel().String(),
		"transitions":    s.degrader.RecentTransitions(10),
	})
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var partial config.Partial
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config payload"})
		return
	}

	if err := s.det.UpdateConfig(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolved := s.det.Config()
	s.fallback.UpdateConfig(resolved.Fallback)

	c.JSON(http.StatusOK, gin.H{"config": resolved.Detection})
}
