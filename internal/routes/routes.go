package routes

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gigboard_backend/internal/handlers"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/services"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
// localUploadsDir - корень локального хранилища; пусто, если файлы в S3/R2.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	mw *handlers.RouteMiddleware,
	localUploadsDir string,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Публичные объекты локального хранилища; приватные только через /api/v1/files
	if localUploadsDir != "" {
		ginRouter.Static("/uploads/"+services.PublicPrefix, filepath.Join(localUploadsDir, services.PublicPrefix))
	}

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.MediaHandler.RegisterRoutes(api, mw)
		appHandlers.FileHandler.RegisterRoutes(api, mw)
		appHandlers.ScreeningHandler.RegisterRoutes(api, mw)
		appHandlers.ApplicationHandler.RegisterRoutes(api, mw)
	}

	// Регистрация WebSocket
	appHandlers.WSHandler.RegisterRoutes(ginRouter, mw)
	logger.Info("WebSocket route /ws registered")
}
