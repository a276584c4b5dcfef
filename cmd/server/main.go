package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sweetspotdev/prop-edge/internal/api"
	"github.com/sweetspotdev/prop-edge/internal/api/handlers"
	"github.com/sweetspotdev/prop-edge/internal/api/middleware"
	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/internal/providers"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/config"
	"github.com/sweetspotdev/prop-edge/pkg/database"
	"github.com/sweetspotdev/prop-edge/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Connect to Redis. The server still runs without it; reads just skip
	// the cache.
	var redisClient *redis.Client
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		log.Warnf("Invalid Redis URL, caching disabled: %v", err)
	} else {
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warnf("Redis unreachable, caching disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Initialize services
	cacheService := services.NewCacheService(redisClient)

	scanInterval, err := time.ParseDuration(cfg.ScanInterval)
	if err != nil {
		log.Warnf("Invalid scan interval, using default 30m: %v", err)
		scanInterval = 30 * time.Minute
	}
	fetchInterval, err := time.ParseDuration(cfg.DataFetchInterval)
	if err != nil {
		log.Warnf("Invalid fetch interval, using default 2h: %v", err)
		fetchInterval = 2 * time.Hour
	}

	provider := providers.NewBallDontLieClient(
		cfg.BallDontLieURL,
		cfg.BallDontLieAPIKey,
		cfg.OddsRateLimit,
		cfg.OddsRetryMax,
		cfg.CircuitBreakerThreshold,
		cfg.ExternalAPITimeout,
		log,
	)

	eng := engine.New(buildEngineConfig(cfg))

	ingestService := services.NewIngestService(db, provider, log, fetchInterval)
	scanService := services.NewScanService(db, cacheService, eng, log, scanInterval, time.Duration(cfg.ScanCacheTTL)*time.Second, cfg.GameLogDepth, cfg.RetentionDays)
	accuracyService := services.NewAccuracyService(db, cacheService, log, cfg.GradingWindowDays)

	if cfg.EnableBackgroundJobs {
		go func() {
			// Respect startup delay configuration
			if cfg.StartupDelaySeconds > 0 {
				log.WithField("delay_seconds", cfg.StartupDelaySeconds).Info("Delaying background jobs")
				time.Sleep(time.Duration(cfg.StartupDelaySeconds) * time.Second)
			}

			if err := ingestService.Start(!cfg.SkipInitialScan); err != nil {
				log.Errorf("Failed to start ingest service: %v", err)
			}
			if err := scanService.Start(!cfg.SkipInitialScan); err != nil {
				log.Errorf("Failed to start scan service: %v", err)
			}
			if err := accuracyService.Start(); err != nil {
				log.Errorf("Failed to start accuracy service: %v", err)
			}
		}()
		defer ingestService.Stop()
		defer scanService.Stop()
		defer accuracyService.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health endpoints at root level
	healthHandler := handlers.NewHealthHandler(db, scanService)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, scanService, accuracyService, ingestService)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

// buildEngineConfig applies configured thresholds over the engine defaults.
// Unset values keep the default, so a partial override is safe.
func buildEngineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()

	if cfg.EngineMinGames > 0 {
		ec.MinGames = cfg.EngineMinGames
	}
	if cfg.EngineHotStreakRatio > 0 {
		ec.HotStreakRatio = cfg.EngineHotStreakRatio
	}
	if cfg.EngineColdStreakRatio > 0 {
		ec.ColdStreakRatio = cfg.EngineColdStreakRatio
	}
	if cfg.EngineValuePriceCutoff < 0 {
		ec.ValuePriceCutoff = cfg.EngineValuePriceCutoff
	}
	if cfg.EngineMediumJuiceCutoff < 0 {
		ec.MediumJuiceCutoff = cfg.EngineMediumJuiceCutoff
	}
	if cfg.EngineHeavyJuiceCutoff < 0 {
		ec.HeavyJuiceCutoff = cfg.EngineHeavyJuiceCutoff
	}
	if cfg.EngineMinMatchupGames > 0 {
		ec.MinMatchupGames = cfg.EngineMinMatchupGames
	}
	if cfg.EngineUsageElite > 0 {
		ec.UsageEliteThreshold = cfg.EngineUsageElite
	}
	if cfg.EngineUsageHigh > 0 {
		ec.UsageHighThreshold = cfg.EngineUsageHigh
	}
	if cfg.EngineUsageModerate > 0 {
		ec.UsageModerateThreshold = cfg.EngineUsageModerate
	}
	if cfg.EngineEliteFloor > 0 {
		ec.EliteFloor = cfg.EngineEliteFloor
	}
	if cfg.EngineEliteHitRate > 0 {
		ec.EliteHitRate = cfg.EngineEliteHitRate
	}
	if cfg.EnginePremiumFloor > 0 {
		ec.PremiumFloor = cfg.EnginePremiumFloor
	}
	if cfg.EnginePremiumHitRate > 0 {
		ec.PremiumHitRate = cfg.EnginePremiumHitRate
	}
	if cfg.EngineStrongHitRate > 0 {
		ec.StrongHitRate = cfg.EngineStrongHitRate
	}
	if cfg.EngineStandardHitRate > 0 {
		ec.StandardHitRate = cfg.EngineStandardHitRate
	}
	if cfg.EngineDiscardHitRate > 0 {
		ec.DiscardHitRate = cfg.EngineDiscardHitRate
	}

	return ec
}
