package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/utils"
)

type SweetSpotHandler struct {
	scans *services.ScanService
}

func NewSweetSpotHandler(scans *services.ScanService) *SweetSpotHandler {
	return &SweetSpotHandler{
		scans: scans,
	}
}

// ListSweetSpots returns the ranked results of the latest scan for a date
func (h *SweetSpotHandler) ListSweetSpots(c *gin.Context) {
	gameDate, err := parseGameDate(c.Query("date"))
	if err != nil {
		utils.SendValidationError(c, "Invalid date", "Use YYYY-MM-DD")
		return
	}

	records, err := h.scans.GetSweetSpots(c.Request.Context(), gameDate)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch sweet spots")
		return
	}

	// Apply filters
	if tier := strings.ToUpper(c.Query("tier")); tier != "" {
		records = filterRecords(records, func(r models.SweetSpotRecord) bool {
			return r.Tier == tier
		})
	}
	if statType := strings.ToLower(c.Query("stat_type")); statType != "" {
		records = filterRecords(records, func(r models.SweetSpotRecord) bool {
			return r.StatType == statType
		})
	}

	utils.SendSuccess(c, gin.H{
		"game_date":   gameDate.Format("2006-01-02"),
		"count":       len(records),
		"sweet_spots": records,
	})
}

// TriggerScan runs the scoring engine on demand
func (h *SweetSpotHandler) TriggerScan(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}

	// Body is optional; an empty body scans today's board
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}

	gameDate, err := parseGameDate(req.Date)
	if err != nil {
		utils.SendValidationError(c, "Invalid date", "Use YYYY-MM-DD")
		return
	}

	result, err := h.scans.RunScan(c.Request.Context(), gameDate)
	if err != nil {
		if errors.Is(err, services.ErrScanInProgress) {
			utils.SendConflict(c, "A scan is already in progress")
			return
		}
		utils.SendInternalError(c, "Scan failed")
		return
	}

	utils.SendSuccess(c, result)
}

// GetSummary returns tier and stat counts for the latest scan of a date
func (h *SweetSpotHandler) GetSummary(c *gin.Context) {
	gameDate, err := parseGameDate(c.Query("date"))
	if err != nil {
		utils.SendValidationError(c, "Invalid date", "Use YYYY-MM-DD")
		return
	}

	summary, err := h.scans.GetSummary(c.Request.Context(), gameDate)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch summary")
		return
	}

	utils.SendSuccess(c, gin.H{
		"game_date": gameDate.Format("2006-01-02"),
		"summary":   summary,
	})
}

func filterRecords(records []models.SweetSpotRecord, keep func(models.SweetSpotRecord) bool) []models.SweetSpotRecord {
	filtered := make([]models.SweetSpotRecord, 0, len(records))
	for _, record := range records {
		if keep(record) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// parseGameDate resolves an optional YYYY-MM-DD value, defaulting to today.
func parseGameDate(raw string) (time.Time, error) {
	if raw == "" {
		return services.NormalizeGameDate(time.Now().UTC()), nil
	}
	return time.Parse("2006-01-02", raw)
}
