package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sweetspotdev/prop-edge/internal/api/handlers"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, scans *services.ScanService, accuracy *services.AccuracyService, ingest *services.IngestService) {
	// Initialize handlers
	sweetSpotHandler := handlers.NewSweetSpotHandler(scans)
	propsHandler := handlers.NewPropsHandler(db, cache, ingest)
	accuracyHandler := handlers.NewAccuracyHandler(accuracy)
	parlayHandler := handlers.NewParlayHandler()

	// Sweet spot endpoints
	group.GET("/sweetspots", sweetSpotHandler.ListSweetSpots)
	group.GET("/sweetspots/summary", sweetSpotHandler.GetSummary)
	group.POST("/sweetspots/scan", sweetSpotHandler.TriggerScan)

	// Prop line endpoints
	group.GET("/props", propsHandler.ListPropLines)
	group.POST("/props/refresh", propsHandler.TriggerRefresh)

	// Accuracy endpoints
	group.GET("/accuracy", accuracyHandler.GetAccuracy)

	// Parlay endpoints
	group.POST("/parlay/evaluate", parlayHandler.EvaluateParlay)
}
