package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

type HealthHandler struct {
	db    *database.DB
	scans *services.ScanService
}

func NewHealthHandler(db *database.DB, scans *services.ScanService) *HealthHandler {
	return &HealthHandler{
		db:    db,
		scans: scans,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "prop-edge",
		"time":    time.Now().UTC(),
	})
}

// GetReady returns readiness status - only returns 200 when the database answers
// This is used for readiness probes in container orchestration
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"database": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"scan":   h.scans.Status(),
	})
}
