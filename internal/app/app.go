package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gigboard_backend/database"
	"gigboard_backend/internal/algorithms"
	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/config"
	"gigboard_backend/internal/handlers"
	"gigboard_backend/internal/imageprocessor"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/middleware"
	"gigboard_backend/internal/progress"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/routes"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/storage"
	"gigboard_backend/internal/validator"
	"gigboard_backend/internal/workers"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/ws"
)

const shutdownTimeout = 15 * time.Second

func Run() {
	if err := config.LoadConfig(); err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.IsDevelopment())
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to database...")
	gormDB, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(gormDB); err != nil {
			logger.Fatal("Failed to migrate database", "error", err)
		}
	}

	storageInstance, err := storage.NewStorage(storageConfig(cfg))
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	redisClient := connectRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	wsManager := ws.NewWebSocketManager()
	ws.SetAllowedOrigins(cfg.Server.AllowedOrigins)
	go wsManager.Run(ctx)

	ginRouter, worker := SetupRouter(cfg, gormDB, storageInstance, redisClient, wsManager)
	worker.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}

// SetupRouter собирает репозитории, сервисы и хэндлеры и возвращает роутер
// вместе с воркером очистки (запускает его вызывающий).
func SetupRouter(
	cfg *config.Config,
	gormDB *gorm.DB,
	storageInstance storage.Storage,
	redisClient *redis.Client,
	wsManager *ws.WebSocketManager,
) (*gin.Engine, *workers.MediaCleanupWorker) {
	mediaRepo := repositories.NewMediaRepository()

	serviceContainer := initializeServices(cfg, mediaRepo, storageInstance, redisClient, wsManager)
	appHandlers := initializeHandlers(cfg, serviceContainer, wsManager)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	routeMiddleware := &handlers.RouteMiddleware{
		Auth:         middleware.AuthMiddleware(tokens),
		OptionalAuth: middleware.OptionalAuthMiddleware(tokens),
	}
	if limiter := middleware.NewRedisLimiter(redisClient); limiter != nil && cfg.Upload.RateLimit > 0 {
		routeMiddleware.UploadLimit = middleware.RateLimitPerUser(limiter, "upload", cfg.Upload.RateLimit, time.Minute)
	}

	ginRouter := initializeGinRouter(cfg, gormDB)

	var localUploadsDir string
	if local, ok := storageInstance.(*storage.LocalStorage); ok {
		localUploadsDir = local.BasePath()
	}
	routes.RegisterRoutes(ginRouter, appHandlers, routeMiddleware, localUploadsDir)

	worker := workers.NewMediaCleanupWorker(
		gormDB,
		mediaRepo,
		storageInstance,
		time.Duration(cfg.Workers.MediaCleanupInterval)*time.Minute,
		time.Duration(cfg.Workers.MediaRetentionHours)*time.Hour,
	)

	return ginRouter, worker
}

func initializeServices(
	cfg *config.Config,
	mediaRepo repositories.MediaRepository,
	storageInstance storage.Storage,
	redisClient *redis.Client,
	wsManager *ws.WebSocketManager,
) *services.ServiceContainer {
	applicationRepo := repositories.NewApplicationRepository()
	postingRepo := repositories.NewJobPostingRepository()

	// без Redis прогресс уходит только в WebSocket
	var progressStore progress.Store
	if redisClient != nil {
		progressStore = progress.NewRedisStore(redisClient, time.Duration(cfg.Redis.ProgressTTL)*time.Second)
	}

	rules := algorithms.DefaultScreeningRules()
	if cfg.Screening.SeniorMinYears > 0 {
		rules.SeniorMinYears = cfg.Screening.SeniorMinYears
	}
	if cfg.Screening.MinPreviousEmployers > 0 {
		rules.MinPreviousEmployers = cfg.Screening.MinPreviousEmployers
	}

	return &services.ServiceContainer{
		MediaService: services.NewMediaService(
			mediaRepo,
			storageInstance,
			imageprocessor.NewProcessor(cfg.Upload.ImageQuality),
			cfg,
			wsManager,
			progressStore,
		),
		ScreeningService:   services.NewScreeningService(applicationRepo, postingRepo, rules, time.Now),
		ApplicationService: services.NewApplicationService(applicationRepo),
	}
}

func initializeHandlers(cfg *config.Config, svc *services.ServiceContainer, wsManager *ws.WebSocketManager) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		MediaHandler:       handlers.NewMediaHandler(baseHandler, svc.MediaService, cfg.Server.MaxMultipartMemory, cfg.MaxUploadRequestSize()),
		FileHandler:        handlers.NewFileHandler(baseHandler, svc.MediaService),
		ScreeningHandler:   handlers.NewScreeningHandler(baseHandler, svc.ScreeningService),
		ApplicationHandler: handlers.NewApplicationHandler(baseHandler, svc.ApplicationService),
		WSHandler:          handlers.NewWSHandler(baseHandler, wsManager),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxMultipartMemory
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		UseSSL:     cfg.Storage.UseSSL,
		PublicRead: cfg.Storage.PublicRead,
	}
}

// connectRedis возвращает nil, если Redis не настроен или недоступен:
// сервис работает без опроса прогресса и без лимита загрузок.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Warn("Redis is not configured, batch progress polling disabled")
		return nil
	}
	client, err := progress.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, batch progress polling disabled", "error", err)
		return nil
	}
	logger.Info("Redis connected", "addr", cfg.Redis.Addr)
	return client
}
