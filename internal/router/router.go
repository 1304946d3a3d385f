// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javajoker/brawlrec-backend/internal/config"
	"github.com/javajoker/brawlrec-backend/internal/handlers"
	"github.com/javajoker/brawlrec-backend/internal/middleware"
)

func Initialize(cfg *config.Config, db handlers.Pinger, scrape handlers.ScrapeTrigger) *gin.Engine {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	scrapeHandler := handlers.NewScrapeHandler(scrape)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		triggerLimit := middleware.PerMinute(cfg.Server.TriggerRatePerMinute)
		v1.POST("/scrape", triggerLimit.Middleware(), scrapeHandler.Trigger)
	}

	return r
}
