package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/database"
	"github.com/sweetspotdev/prop-edge/pkg/utils"
)

// propLinesCacheTTL is short because the odds board moves all day.
const propLinesCacheTTL = 2 * time.Minute

type PropsHandler struct {
	db     *database.DB
	cache  *services.CacheService
	ingest *services.IngestService
}

func NewPropsHandler(db *database.DB, cache *services.CacheService, ingest *services.IngestService) *PropsHandler {
	return &PropsHandler{
		db:     db,
		cache:  cache,
		ingest: ingest,
	}
}

// ListPropLines returns the freshest snapshot of every line on the board for a date
func (h *PropsHandler) ListPropLines(c *gin.Context) {
	gameDate, err := parseGameDate(c.Query("date"))
	if err != nil {
		utils.SendValidationError(c, "Invalid date", "Use YYYY-MM-DD")
		return
	}
	gameDate = services.NormalizeGameDate(gameDate)

	// Check cache first
	cacheKey := services.PropLinesCacheKey(gameDate)
	var lines []models.PropLine
	if err := h.cache.Get(c.Request.Context(), cacheKey, &lines); err != nil {
		lines, err = models.LatestPropLines(h.db, gameDate)
		if err != nil {
			utils.SendInternalError(c, "Failed to fetch prop lines")
			return
		}
		h.cache.Set(c.Request.Context(), cacheKey, lines, propLinesCacheTTL)
	}

	utils.SendSuccess(c, gin.H{
		"game_date": gameDate.Format("2006-01-02"),
		"count":     len(lines),
		"lines":     lines,
	})
}

// TriggerRefresh pulls a fresh board from the odds provider
func (h *PropsHandler) TriggerRefresh(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}

	// Body is optional; an empty body refreshes today's board and
	// yesterday's box scores
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}

	if req.Date == "" {
		if err := h.ingest.RefreshAll(c.Request.Context()); err != nil {
			utils.SendServiceUnavailable(c, "Provider refresh failed")
			return
		}
		today := services.NormalizeGameDate(time.Now().UTC())
		h.cache.Delete(c.Request.Context(), services.PropLinesCacheKey(today))
		utils.SendSuccess(c, gin.H{
			"game_date": today.Format("2006-01-02"),
			"refreshed": "prop lines and game logs",
		})
		return
	}

	gameDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.SendValidationError(c, "Invalid date", "Use YYYY-MM-DD")
		return
	}
	gameDate = services.NormalizeGameDate(gameDate)

	stored, err := h.ingest.RefreshPropLines(c.Request.Context(), gameDate)
	if err != nil {
		utils.SendServiceUnavailable(c, "Provider refresh failed")
		return
	}

	// A fresh board supersedes the cached snapshot list
	h.cache.Delete(c.Request.Context(), services.PropLinesCacheKey(gameDate))

	utils.SendSuccess(c, gin.H{
		"game_date": gameDate.Format("2006-01-02"),
		"stored":    stored,
	})
}
