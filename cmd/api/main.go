package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/booking"
	"github.com/chachabrian/mooveit-carpool/internal/config"
	"github.com/chachabrian/mooveit-carpool/internal/database"
	"github.com/chachabrian/mooveit-carpool/internal/handlers"
	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/moderation"
	"github.com/chachabrian/mooveit-carpool/internal/rating"
	"github.com/chachabrian/mooveit-carpool/internal/services"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the store
	var st store.Store
	if cfg.Database.Driver == "memory" {
		logger.Warn("DB_DRIVER=memory, data is lost on restart")
		st = store.NewMemoryStore()
	} else {
		db, err := database.InitDB(cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		st = store.NewGormStore(db)
	}

	// Initialize WebSocket hub
	hub := services.NewHub(logger)
	go hub.Run()

	instanceID := uuid.NewString()
	deps := services.NotifierDeps{
		Store:      st,
		Hub:        hub,
		InstanceID: instanceID,
		BaseURL:    cfg.Storage.BaseURL,
		Log:        logger,
	}

	// Redis is optional: it adds the search cache and cross-instance events
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = services.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Redis")
		}
		defer redisClient.Close()
		deps.Redis = redisClient
		deps.Cache = services.NewTripCache(redisClient, cfg.SearchCacheTTL)
		go services.SubscribeEvents(ctx, redisClient, hub, instanceID)
	}

	// Initialize Firebase (push is skipped when not configured)
	pusher, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath, logger)
	if err != nil {
		logger.WithError(err).Warn("Firebase initialization failed, push notifications disabled")
	} else if pusher.Enabled() {
		deps.Push = pusher
	}

	if cfg.AMQPURL != "" {
		queue := services.NewQueuePublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		defer queue.Close()
		deps.Queue = queue
	}

	if cfg.SMTP.Enabled() {
		deps.Mail = services.NewMailer(cfg.SMTP, logger)
	}

	// Initialize Storage (S3 or local fallback)
	storage, err := services.InitStorage(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}

	notifier := services.NewNotifier(deps)
	notifications := inbox.NewNotificationService(st, logger)
	go notifications.RunCleanup(ctx, cfg.NotificationCleanupInterval, cfg.NotificationRetention)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, 10*time.Minute)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), limiter.Middleware())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	if !storage.IsUsingS3() {
		r.Static("/uploads", cfg.Storage.UploadDir)
	}

	handlers.RegisterRoutes(r.Group("/api"), handlers.Deps{
		Store:         st,
		Ledger:        booking.NewLedger(st, notifier, logger),
		Trips:         booking.NewTripService(st, notifier, logger),
		Ratings:       rating.NewAggregator(st, notifier, logger, rating.Options{ResetOnEmpty: cfg.RatingResetOnEmpty}),
		Messages:      inbox.NewMessageService(st, notifier, logger),
		Notifications: notifications,
		Reports:       moderation.NewService(st, notifier, logger),
		Hub:           hub,
		Storage:       storage,
		Cache:         deps.Cache,
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTTTL,
		Log:           logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	notifier.Wait()
}
