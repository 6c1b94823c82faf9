package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/yourorg/notisync/internal/cache"
	"github.com/yourorg/notisync/internal/client"
	"github.com/yourorg/notisync/internal/config"
	"github.com/yourorg/notisync/internal/event"
	"github.com/yourorg/notisync/internal/handler"
	"github.com/yourorg/notisync/internal/middleware"
	"github.com/yourorg/notisync/internal/push"
	"github.com/yourorg/notisync/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Redis client (if enabled)
	var snapshots *cache.SnapshotCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Warn("Failed to connect to Redis, running without feed snapshot", zap.Error(err))
		} else {
			logger.Info("Connected to Redis", zap.String("address", cfg.Redis.URL))
			snapshots = cache.NewSnapshotCache(redisClient, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotTTL, logger)
		}
	}

	// Initialize delivery event publisher (if enabled)
	var events *event.Publisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		events = event.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info("Initialized delivery event publisher", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// Create API clients
	tokens := client.NewStaticProvider(cfg.API.Token, logger)
	notificationClient := client.NewNotificationClient(cfg.API.BaseURL, tokens, cfg.API.Timeout, logger)
	pushClient := client.NewPushClient(cfg.API.BaseURL, tokens, cfg.API.Timeout, logger)

	// Create the notification store
	notificationStore := store.New(notificationClient, events, store.Config{
		PollInterval: cfg.Poll.Interval,
		PageSize:     cfg.Poll.PageSize,
	}, logger)

	// Warm start from the saved snapshot before the first refresh
	if snapshots != nil {
		if snapshot, err := snapshots.Load(context.Background()); err != nil {
			logger.Warn("Failed to load feed snapshot", zap.Error(err))
		} else if snapshot != nil {
			notificationStore.Seed(snapshot.Items, snapshot.UnreadCount)
			logger.Info("Seeded feed from snapshot",
				zap.Int("items", len(snapshot.Items)),
				zap.Time("savedAt", snapshot.SavedAt))
		}
	}

	// Create the push subscription manager
	receiver := push.NewHeadlessReceiver(cfg.Push.RelayURL, cfg.Push.GrantPermission, logger)
	pushManager := push.NewManager(pushClient, receiver, logger)

	// Start the polling loop
	pollCtx, stopPolling := context.WithCancel(context.Background())
	go notificationStore.Run(pollCtx)

	// Create HTTP server
	router := setupRouter(notificationStore, pushManager, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down agent...")

	// Stop polling before anything else so no refresh lands mid-shutdown
	stopPolling()

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Persist the feed so the next start is warm
	if snapshots != nil {
		if err := snapshots.Save(ctx, notificationStore.Snapshot(), notificationStore.Unread()); err != nil {
			logger.Warn("Failed to save feed snapshot", zap.Error(err))
		}
	}

	// Close the event publisher if initialized
	if events != nil {
		events.Close()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Agent exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func setupRouter(
	notificationStore *store.Store,
	pushManager *push.Manager,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// ==================== NOTIFICATION ROUTES ====================
		notifications := v1.Group("/notifications")
		{
			notifHandler := handler.NewNotificationHandler(notificationStore, logger)

			notifications.GET("", notifHandler.GetNotifications)
			notifications.GET("/count", notifHandler.GetUnreadCount)
			notifications.GET("/stats", notifHandler.GetStats)
			notifications.PUT("/read-all", notifHandler.MarkAllAsRead)
			notifications.PUT("/:id/read", notifHandler.MarkAsRead)
			notifications.DELETE("/:id", notifHandler.DeleteNotification)
			notifications.DELETE("", notifHandler.DeleteAllNotifications)
		}

		// ==================== PUSH ROUTES ====================
		pushRoutes := v1.Group("/push")
		{
			pushHandler := handler.NewPushHandler(pushManager, logger)

			pushRoutes.GET("/status", pushHandler.GetStatus)
			pushRoutes.POST("/subscribe", pushHandler.Subscribe)
			pushRoutes.DELETE("/subscription", pushHandler.Unsubscribe)
		}
	}

	return router
}
