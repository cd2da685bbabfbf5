package routes

import (
	"trafficwatch-backend/internal/api/handlers"
	"trafficwatch-backend/internal/api/middleware"
	"trafficwatch-backend/internal/config"
	"trafficwatch-backend/internal/repository"
	"trafficwatch-backend/internal/services"
	"trafficwatch-backend/pkg/cache"
	"trafficwatch-backend/pkg/email"
	"trafficwatch-backend/pkg/jwt"
	"trafficwatch-backend/pkg/localstore"
	"trafficwatch-backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies carries everything the route tree needs wired in.
type Dependencies struct {
	DB          *mongo.Database
	RedisClient *redis.Client
	Store       *localstore.Store
	JWTUtil     *jwt.JWTUtil
	Email       *email.EmailService
	Config      *config.Config
	Log         *logrus.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Repositories
	userRepo := repository.NewUserRepository(deps.DB)
	vehicleRepo := repository.NewVehicleRepository(deps.DB)
	zoneRepo := repository.NewZoneRepository(deps.DB)

	// Services
	authService := services.NewAuthService(userRepo, deps.JWTUtil, deps.Email, deps.Log)
	userService := services.NewUserService(userRepo)
	vehicleService := services.NewVehicleService(vehicleRepo)
	zoneService := services.NewZoneService(zoneRepo, deps.Log)
	incidentService := services.NewIncidentService(deps.Store, deps.Log)
	statsService := services.NewStatsService(vehicleRepo, zoneRepo, userRepo, deps.Store)

	if deps.RedisClient != nil {
		zoneService.SetCacheManager(cache.NewDefaultCacheManager(deps.RedisClient))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	vehicleHandler := handlers.NewVehicleHandler(vehicleService)
	zoneHandler := handlers.NewZoneHandler(zoneService)
	incidentHandler := handlers.NewIncidentHandler(incidentService)
	reportHandler := handlers.NewReportHandler(incidentService)
	statsHandler := handlers.NewStatsHandler(statsService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.RedisClient, deps.Store)

	api := router.Group("/api/v1")

	api.GET("/health", healthHandler.HealthCheck)

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// Anyone can read the public zone map and incident feed
	public := api.Group("/")
	{
		public.GET("/zones", zoneHandler.GetZones)
		public.GET("/zones/nearby", zoneHandler.GetNearbyZones)
		public.GET("/zones/:id", zoneHandler.GetZone)
		public.GET("/incidents", incidentHandler.GetIncidents)
		public.GET("/incidents/feed", incidentHandler.GetFeed)
		public.GET("/incidents/:id", incidentHandler.GetIncident)
	}

	// Authenticated routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(deps.JWTUtil))
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		// Citizen reports
		reports := protected.Group("/reports")
		{
			reports.POST("", reportHandler.SubmitReport)
			reports.GET("/mine", reportHandler.GetMyReports)

			review := reports.Group("")
			review.Use(middleware.RequireRole("admin", "operator"))
			{
				review.GET("", reportHandler.GetReports)
				review.GET("/:id", reportHandler.GetReport)
				review.POST("/:id/approve", reportHandler.ApproveReport)
				review.POST("/:id/reject", reportHandler.RejectReport)
			}
		}

		// Vehicle registrations
		vehicles := protected.Group("/vehicles")
		{
			vehicles.POST("", vehicleHandler.RegisterVehicle)
			vehicles.GET("/mine", vehicleHandler.GetMyVehicles)

			manage := vehicles.Group("")
			manage.Use(middleware.RequireRole("admin", "operator"))
			{
				manage.GET("", vehicleHandler.GetVehicles)
				manage.GET("/:id", vehicleHandler.GetVehicle)
				manage.PATCH("/:id", vehicleHandler.UpdateVehicle)
				manage.DELETE("/:id", vehicleHandler.DeleteVehicle)
			}
		}

		// Incident management
		incidents := protected.Group("/incidents")
		incidents.Use(middleware.RequireRole("admin", "operator"))
		{
			incidents.POST("", incidentHandler.CreateIncident)
			incidents.PATCH("/:id", incidentHandler.UpdateIncident)
			incidents.DELETE("/:id", incidentHandler.DeleteIncident)
		}

		// Zone management
		zones := protected.Group("/zones")
		zones.Use(middleware.RequireRole("admin", "operator"))
		{
			zones.POST("", zoneHandler.CreateZone)
			zones.PATCH("/:id", zoneHandler.UpdateZone)
			zones.POST("/:id/congestion", zoneHandler.ReportCongestion)
			zones.DELETE("/:id", zoneHandler.DeleteZone)
		}

		// Dashboard statistics
		stats := protected.Group("/stats")
		stats.Use(middleware.RequireRole("admin", "operator"))
		{
			stats.GET("/dashboard", statsHandler.GetDashboardStats)
		}

		// User management and maintenance, admin only
		admin := protected.Group("/")
		admin.Use(middleware.RequireRole("admin"))
		{
			users := admin.Group("/users")
			{
				users.GET("", userHandler.GetUsers)
				users.GET("/by-role", userHandler.GetUsersByRole)
				users.POST("", userHandler.CreateUser)
				users.GET("/:id", userHandler.GetUser)
				users.PATCH("/:id", userHandler.UpdateUser)
				users.PATCH("/:id/status", userHandler.ChangeUserStatus)
				users.DELETE("/:id", userHandler.DeleteUser)
			}

			admin.DELETE("/incidents/store", incidentHandler.ClearStore)
		}
	}
}
