// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"majifix/internal/core/locale"
	"majifix/internal/domain/service"
	"majifix/internal/infrastructure/http/v1/handlers"
	"majifix/internal/infrastructure/http/v1/middleware"
	"majifix/internal/metrics"
	"majifix/pkg/logger"
)

// PathPrefix is the versioned mount point for the API.
const PathPrefix = "/v1.0.0"

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services is the business service for the service resource
	Services *service.Manager

	// Pool backs the readiness probe; nil skips the database check
	Pool *pgxpool.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Locales configures localized field handling
	Locales locale.Config
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	serviceHandler := handlers.NewServiceHandler(cfg.Services, cfg.Locales)

	api := router.Group(PathPrefix)
	{
		api.GET("/services", serviceHandler.List)
		api.POST("/services", serviceHandler.Create)
		api.GET("/services/schema", serviceHandler.Schema)
		api.GET("/services/export", serviceHandler.Export)
		api.GET("/services/:id", serviceHandler.Get)
		api.PUT("/services/:id", serviceHandler.Update)
		api.PATCH("/services/:id", serviceHandler.Update)
		api.DELETE("/services/:id", serviceHandler.Delete)

		api.GET("/jurisdictions/:jurisdiction/services", serviceHandler.ListByJurisdiction)

		api.GET("/open311/services", serviceHandler.Open311)
		api.GET("/open311/services.json", serviceHandler.Open311)
	}

	return router
}
