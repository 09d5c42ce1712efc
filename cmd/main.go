package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stocksync-service/internal/handler"
	mid "stocksync-service/internal/middleware"
	"stocksync-service/internal/sync"
	"stocksync-service/pkg/cache"
	"stocksync-service/pkg/config"
	"stocksync-service/pkg/database"
	"stocksync-service/pkg/external"
	"stocksync-service/pkg/jwtutil"
	"stocksync-service/pkg/logger"
	"stocksync-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (.env is picked up inside Load when present)
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting stocksync-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Storefront inventory API client, injected everywhere it is needed
	storefront := external.NewClient(
		appConfig.External.BaseURL,
		appConfig.External.AccessToken,
		appConfig.External.Timeout,
		log,
	)

	// Sync engine
	syncService := sync.NewService(database.GetDB(), storefront, log, appConfig.Reconcile.CallDelay)

	// Redis lock for the reconciliation job; optional
	var locks *cache.RedisClient
	if appConfig.Redis.Addr != "" {
		locks, err = cache.NewRedisClient(&appConfig.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer locks.Close()
		log.Info("Redis connection established", zap.String("addr", appConfig.Redis.Addr))
	} else {
		log.Warn("Redis not configured, reconciliation runs without a cross-replica lock")
	}

	// Periodic pull-all reconciliation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.Reconcile.Enabled {
		reconciler := sync.NewReconciler(syncService, locks, appConfig.Reconcile.Interval, log)
		go reconciler.Run(ctx)
	} else {
		log.Warn("Reconciliation job disabled by configuration")
	}

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Handlers
	webhookHandler := handler.NewWebhookHandler(database.GetDB(), syncService, appConfig.External.WebhookSecret)
	stockHandler := handler.NewStockHandler(syncService)
	syncHandler := handler.NewSyncHandler(syncService)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Inbound storefront webhook - authenticated by HMAC signature, not JWT
	e.POST("/webhooks/inventory", webhookHandler.HandleInventoryLevel)

	// Stock API routes - order creation/void collaborators and operators
	stockAPI := e.Group("/api/stock", mid.AuthMiddleware)
	stockAPI.POST("/check", stockHandler.CheckStock)
	stockAPI.POST("/deduct", stockHandler.Deduct)
	stockAPI.POST("/restore", stockHandler.Restore)
	stockAPI.POST("/transfer", stockHandler.Transfer)
	stockAPI.POST("/records", stockHandler.CreateRecord)
	stockAPI.GET("/records/:id", stockHandler.GetRecord)

	// Sync API routes - operational/administrative use
	syncAPI := e.Group("/api/sync", mid.AuthMiddleware)
	syncAPI.POST("/products/:id/push", syncHandler.Push)
	syncAPI.POST("/products/:id/link", syncHandler.Link)
	syncAPI.POST("/products/:id/unlink", syncHandler.Unlink)
	syncAPI.GET("/products/:id/logs", syncHandler.ListLogs)
	syncAPI.POST("/pull-all", syncHandler.PullAll)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server error", zap.Error(err))
	}
}
