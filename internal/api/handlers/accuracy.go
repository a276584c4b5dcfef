package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/utils"
)

type AccuracyHandler struct {
	accuracy *services.AccuracyService
}

func NewAccuracyHandler(accuracy *services.AccuracyService) *AccuracyHandler {
	return &AccuracyHandler{
		accuracy: accuracy,
	}
}

// GetAccuracy returns graded hit rates over a trailing window
func (h *AccuracyHandler) GetAccuracy(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		utils.SendValidationError(c, "Invalid days", "Use an integer between 1 and 365")
		return
	}

	report, err := h.accuracy.GetAccuracy(c.Request.Context(), days)
	if err != nil {
		utils.SendInternalError(c, "Failed to compute accuracy")
		return
	}

	utils.SendSuccess(c, report)
}
