package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sweetspotdev/prop-edge/internal/parlay"
	"github.com/sweetspotdev/prop-edge/pkg/utils"
)

type ParlayHandler struct{}

func NewParlayHandler() *ParlayHandler {
	return &ParlayHandler{}
}

// EvaluateParlay prices a ticket of prop legs and flags correlated exposure
func (h *ParlayHandler) EvaluateParlay(c *gin.Context) {
	var req struct {
		Legs []parlay.Leg `json:"legs" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	evaluation, err := parlay.Evaluate(req.Legs)
	if err != nil {
		utils.SendValidationError(c, "Invalid parlay", err.Error())
		return
	}

	utils.SendSuccess(c, evaluation)
}
