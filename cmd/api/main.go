package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/loadedteafinder/backend/internal/claims"
	"github.com/loadedteafinder/backend/internal/config"
	"github.com/loadedteafinder/backend/internal/database"
	"github.com/loadedteafinder/backend/internal/database/migrations"
	"github.com/loadedteafinder/backend/internal/queue"
	"github.com/loadedteafinder/backend/internal/routes"
	"github.com/loadedteafinder/backend/internal/services/email"
	"github.com/loadedteafinder/backend/internal/services/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	// The search cache is optional; the API works without Redis.
	var cache *redis.Client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, search caching disabled")
	} else {
		cache = redisClient
	}

	store, err := storage.NewDiskStore(cfg.Storage.UploadsDir)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize document storage")
	}

	jobQueue := queue.NewQueue(db, log)

	emailService := email.NewEmailService(cfg.SMTP, cfg.FrontendURL)
	notifier := claims.NewNotifier(db, emailService, cfg.Claims.AdminEmail, log)
	notifier.Register(jobQueue)

	go jobQueue.ProcessJobs()
	retryScheduler := jobQueue.StartRetryScheduler()
	defer retryScheduler.Stop()
	defer jobQueue.Stop()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(router, db, cfg, jobQueue, cache, store, log)

	log.WithField("port", cfg.Server.Port).Info("Loaded Tea Finder API listening")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
