package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pet-search-assistant/internal/common/errors"
)

type turnRequest struct {
	CustomerID string `json:"customerId"`
	Utterance  string `json:"utterance" binding:"required"`
}

func (s *Server) handleTurn(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := apperrors.ToResponse(apperrors.NewInvalidRequestError(err.Error()))
		c.JSON(status, body)
		return
	}

	start := time.Now()
	result, err := s.assistant.HandleTurn(c.Request.Context(), sessionID, req.CustomerID, req.Utterance)
	if err != nil {
		status, body := apperrors.ToResponse(err)
		s.logger.WithError(err).Error("turn failed", map[string]interface{}{
			"sessionId": sessionID,
			"status":    status,
		})
		s.recordTurn(c.Request.Context(), "error", time.Since(start))
		c.JSON(status, body)
		return
	}

	turnStatus := "ok"
	if result.Degraded.Any() {
		turnStatus = "degraded"
	}
	s.recordTurn(c.Request.Context(), turnStatus, time.Since(start))

	// The trace is a debugging aid, returned only on request.
	if c.Query("debug") != "true" {
		result.Trace = nil
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReset(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := s.assistant.Reset(c.Request.Context(), sessionID); err != nil {
		status, body := apperrors.ToResponse(err)
		c.JSON(status, body)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	services := make(map[string]string, len(s.checks))

	for _, check := range s.checks {
		if err := check.Check(c.Request.Context()); err != nil {
			services[check.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		services[check.Name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"services": services,
	})
}
