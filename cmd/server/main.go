package main

import (
	"context"
	"time"

	"trafficwatch-backend/internal/api/middleware"
	"trafficwatch-backend/internal/api/routes"
	"trafficwatch-backend/internal/config"
	"trafficwatch-backend/internal/repository"
	"trafficwatch-backend/pkg/cleanup"
	"trafficwatch-backend/pkg/database"
	"trafficwatch-backend/pkg/email"
	"trafficwatch-backend/pkg/jwt"
	"trafficwatch-backend/pkg/localstore"
	"trafficwatch-backend/pkg/logger"
	"trafficwatch-backend/pkg/ratelimit"
	"trafficwatch-backend/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Disconnect(db.Client())

	redisClient := redis.NewClient(cfg.Redis, log)
	defer redisClient.Close()

	healthStatus := redisClient.HealthCheck()
	if healthStatus.IsConnected {
		log.WithField("addr", healthStatus.ConnectionInfo).Info("Redis connected")
	} else {
		log.WithField("error", healthStatus.Error).Warn("Redis connection failed, will retry automatically")
	}

	// The incident store is the system of record for the live feed; refuse
	// to start without it.
	store := localstore.New(redisClient.GetClient(), localstore.Options{
		KeyPrefix: cfg.Redis.KeyPrefix,
		District:  cfg.District,
		State:     cfg.State,
	})
	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Open(openCtx); err != nil {
		log.WithError(err).Fatal("Failed to open incident store")
	}

	jwtUtil := jwt.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpiry)

	emailService := email.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.FromEmail,
		cfg.SMTP.FromName,
		cfg.SMTP.AppURL,
	)

	cleanupService := cleanup.NewCleanupService(repository.NewUserRepository(db), time.Hour, log)
	go cleanupService.Start()
	defer cleanupService.Stop()

	var limiter ratelimit.RateLimiter
	if healthStatus.IsConnected {
		redisLimiter := ratelimit.NewRedisRateLimiter(redisClient.GetClient(), ratelimit.DefaultConfig())
		if err := redisLimiter.LoadCustomLimits(); err != nil {
			log.WithError(err).Warn("Failed to load persisted rate limit overrides")
		}
		limiter = redisLimiter
	} else {
		limiter = ratelimit.NewMemoryRateLimiter(ratelimit.DefaultConfig())
		log.Warn("Using in-memory rate limiter")
	}

	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}

	// Wildcard origin is for development only
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}

	router.Use(cors.New(corsConfig))
	router.Use(middleware.RateLimitMiddleware(limiter))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:          db,
		RedisClient: redisClient,
		Store:       store,
		JWTUtil:     jwtUtil,
		Email:       emailService,
		Config:      cfg,
		Log:         log,
	})

	log.WithField("port", cfg.Port).Info("Server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server exited")
	}
}
