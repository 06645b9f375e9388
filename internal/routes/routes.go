package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/claims"
	"github.com/loadedteafinder/backend/internal/config"
	"github.com/loadedteafinder/backend/internal/handlers"
	"github.com/loadedteafinder/backend/internal/middleware"
	"github.com/loadedteafinder/backend/internal/queue"
	"github.com/loadedteafinder/backend/internal/services/business"
	"github.com/loadedteafinder/backend/internal/services/rewards"
	"github.com/loadedteafinder/backend/internal/services/storage"
)

// RegisterRoutes wires every API route
func RegisterRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, jobQueue *queue.Queue, cache *redis.Client, store storage.ObjectStore, log *logrus.Logger) {
	claimService := claims.NewService(db, store, jobQueue, log)
	businessService := business.NewService(db, cache, log)
	rewardsService := rewards.NewService(db, cfg.Rewards)

	authHandler := handlers.NewAuthHandler(db)
	claimHandler := handlers.NewClaimHandler(claimService)
	adminClaimHandler := handlers.NewAdminClaimHandler(claimService)
	businessHandler := handlers.NewBusinessHandler(businessService)
	reviewHandler := handlers.NewReviewHandler(db)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	rateLimiter := middleware.NewRateLimiter(10, 10, 20, 5)
	router.Use(rateLimiter.IPRateLimiterMiddleware())

	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.AuthRateLimiterMiddleware())
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	businessGroup := router.Group("/api/businesses")
	{
		businessGroup.GET("", businessHandler.Search)
		businessGroup.GET("/:slug", businessHandler.GetBySlug)
	}

	// Review routes use the business id; a separate group keeps the :slug
	// and :id params from colliding.
	reviewGroup := router.Group("/api/reviews")
	{
		reviewGroup.GET("/:id", reviewHandler.List)
		reviewGroup.POST("/:id", middleware.AuthMiddleware(), reviewHandler.Create)
	}

	rewardsGroup := router.Group("/api/rewards")
	rewardsGroup.Use(middleware.AuthMiddleware())
	{
		rewardsGroup.POST("/checkin", rewardsHandler.CheckIn)
		rewardsGroup.GET("/:businessID", rewardsHandler.Balance)
		rewardsGroup.POST("/:businessID/redeem", rewardsHandler.Redeem)
	}

	claimGroup := router.Group("/api/claims")
	claimGroup.Use(middleware.AuthMiddleware())
	{
		claimGroup.POST("", claimHandler.Submit)
		claimGroup.GET("/mine", claimHandler.ListMine)
		claimGroup.GET("/:id", claimHandler.Get)
		claimGroup.POST("/:id/cancel", claimHandler.Cancel)
	}

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.POST("/businesses", businessHandler.Create)
		adminGroup.GET("/claims", adminClaimHandler.ListQueue)
		adminGroup.POST("/claims/:id/review", adminClaimHandler.BeginReview)
		adminGroup.POST("/claims/:id/request-info", adminClaimHandler.RequestInfo)
		adminGroup.POST("/claims/:id/steps", adminClaimHandler.AddStep)
		adminGroup.PATCH("/claims/:id/steps/:method", adminClaimHandler.AdvanceStep)
		adminGroup.POST("/claims/:id/approve", adminClaimHandler.Approve)
		adminGroup.POST("/claims/:id/reject", adminClaimHandler.Reject)
	}
}
