package routes

import (
	"net/http"
	"time"

	"tasktracker/internal/adapter/http/handler"
	"tasktracker/internal/adapter/http/middleware"
	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg/config"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type HandlersConfig struct {
	TaskHandler *handler.TaskHandler
}

func SetupRouter(handlers HandlersConfig, metrics *telemetry.AppMetrics, l *logger.LokiLogger) *gin.Engine {
	return SetupRouterWithConfig(handlers, metrics, l, config.GetDefaultConfig())
}

func SetupRouterWithConfig(handlers HandlersConfig, metrics *telemetry.AppMetrics, l *logger.LokiLogger, cfg *config.AppConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.CurrentMiddleware())

	middlewares.SetupGinMiddleware(router, cfg, metrics, l)

	router.GET("/health", handler.Health)

	if handlers.TaskHandler != nil {
		setupTaskRoutes(router, handlers.TaskHandler)
	}

	if cfg.StaticDir != "" {
		router.Static("/app", cfg.StaticDir)
	}

	return router
}

func setupTaskRoutes(router *gin.Engine, taskHandler *handler.TaskHandler) {
	tasks := router.Group("/tasks")
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PUT("/:id/done", taskHandler.MarkDone)
		tasks.PUT("/:id/title", taskHandler.RenameTask)
	}
}

// corsMiddleware allows any origin, so a frontend served from elsewhere can
// reach the API.
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:   []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	})
}
