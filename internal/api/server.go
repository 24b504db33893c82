// Package api exposes the assistant over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pet-search-assistant/internal/assistant"
	"pet-search-assistant/internal/common/config"
	"pet-search-assistant/internal/common/logger"
)

// HealthCheck pings one backing service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// TurnRecorder receives per-turn telemetry (satisfied by the observability
// package).
type TurnRecorder interface {
	RecordTurnProcessed(ctx context.Context, status string)
	RecordTurnDuration(ctx context.Context, duration time.Duration, status string)
}

type Server struct {
	assistant *assistant.Assistant
	logger    logger.Logger
	checks    []HealthCheck
	recorder  TurnRecorder
	engine    *gin.Engine
}

func NewServer(cfg *config.Config, a *assistant.Assistant, log logger.Logger, checks ...HealthCheck) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		assistant: a,
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
		checks:    checks,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/sessions/:sessionId/turns", s.handleTurn)
		v1.DELETE("/sessions/:sessionId", s.handleReset)
	}

	s.engine = engine
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetTurnRecorder attaches a telemetry sink for handled turns. A nil
// recorder disables recording.
func (s *Server) SetTurnRecorder(r TurnRecorder) {
	s.recorder = r
}

func (s *Server) recordTurn(ctx context.Context, status string, duration time.Duration) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordTurnProcessed(ctx, status)
	s.recorder.RecordTurnDuration(ctx, duration, status)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
