package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"github.com/craftparty/craftparty-backend/internal/handlers"
	"github.com/craftparty/craftparty-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	ProjectHandler      *handlers.ProjectHandler
	TreeHandler         *handlers.TreeHandler
	ContributionHandler *handlers.ContributionHandler
	AnalyticsHandler    *handlers.AnalyticsHandler
	EnchantHandler      *handlers.EnchantHandler
	SnapshotHandler     *handlers.SnapshotHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("craftparty-backend"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

// ===============
// || Public    ||
// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

// ===============
// || Protected ||
// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Dry-run expansion + enchantment planning (no project required)
	api.POST("/expand", cfg.TreeHandler.Expand)
	api.GET("/enchantments/plan", cfg.EnchantHandler.Plan)
	// Projects
	api.POST("/projects", cfg.ProjectHandler.Create)
	api.GET("/projects", cfg.ProjectHandler.List)
	api.GET("/projects/:id", cfg.ProjectHandler.Get)
	api.PATCH("/projects/:id/status", cfg.ProjectHandler.UpdateStatus)
	api.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	api.POST("/projects/:id/goals", cfg.ProjectHandler.AddGoal)
	api.PUT("/projects/:id/enchantments", cfg.ProjectHandler.UpdateEnchantments)
	// Contributions
	api.POST("/projects/:id/contributions", cfg.ContributionHandler.Contribute)
	api.GET("/projects/:id/contributions", cfg.ContributionHandler.List)
	// Analytics
	api.GET("/projects/:id/bottlenecks", cfg.AnalyticsHandler.Bottlenecks)
	api.GET("/projects/:id/progress", cfg.AnalyticsHandler.Progress)
	api.GET("/projects/:id/resources", cfg.AnalyticsHandler.Resources)
	// Snapshots
	api.POST("/projects/:id/snapshots", cfg.SnapshotHandler.Create)
	api.GET("/projects/:id/snapshots", cfg.SnapshotHandler.List)
	api.POST("/projects/:id/snapshots/:version/restore", cfg.SnapshotHandler.Restore)

	return router
}
