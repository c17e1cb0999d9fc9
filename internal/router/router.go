package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentals-dev/rentals/internal/handlers"
	"github.com/rentals-dev/rentals/internal/metrics"
	"github.com/rentals-dev/rentals/internal/middleware"
	"github.com/rentals-dev/rentals/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(metrics.Middleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		v1 := api.Group("/v1")

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.GET("/refresh", handlers.Refresh)
			auth.GET("/logout", handlers.Logout)
		}

		users := v1.Group("/users", middleware.AuthMiddleware())
		{
			users.GET("", handlers.ListUsers)
			users.GET("/:user_id", handlers.GetUser)
			users.PATCH("/:user_id", handlers.UpdateUser)
			users.DELETE("/:user_id", handlers.DeleteUser)

			users.GET("/:user_id/profile", handlers.GetProfile)
			users.PATCH("/:user_id/profile", handlers.UpdateProfile)
			users.DELETE("/:user_id/profile", handlers.DeleteProfile)

			users.GET("/:user_id/buildings", handlers.UserBuildings)
			users.GET("/:user_id/notices", handlers.UserNotices)
			users.GET("/:user_id/comments", handlers.UserComments)
		}

		buildings := v1.Group("/buildings")
		{
			// Single and bulk reads are public; everything else needs a token.
			buildings.GET("", handlers.ListBuildings)
			buildings.GET("/:building_id", handlers.GetBuilding)

			buildings.POST("", middleware.AuthMiddleware(), handlers.CreateBuilding)
			buildings.PATCH("/:building_id", middleware.AuthMiddleware(), handlers.UpdateBuilding)
			buildings.DELETE("/:building_id", middleware.AuthMiddleware(), handlers.DeleteBuilding)

			buildings.GET("/:building_id/users", middleware.AuthMiddleware(), handlers.ListBuildingUsers)
			buildings.POST("/:building_id/users", middleware.AuthMiddleware(), handlers.AddBuildingUser)
			buildings.DELETE("/:building_id/users/:user_id", middleware.AuthMiddleware(), handlers.RemoveBuildingUser)

			buildings.GET("/:building_id/notices", middleware.AuthMiddleware(), handlers.BuildingNotices)
			buildings.GET("/:building_id/comments", middleware.AuthMiddleware(), handlers.BuildingComments)
			buildings.GET("/:building_id/feed", middleware.AuthMiddleware(), handlers.BuildingFeed)
		}

		notices := v1.Group("/notices", middleware.AuthMiddleware())
		{
			notices.GET("", handlers.ListNotices)
			notices.POST("", handlers.CreateNotice)
			notices.GET("/:notice_id", handlers.GetNotice)
			notices.PATCH("/:notice_id", handlers.UpdateNotice)
			notices.DELETE("/:notice_id", handlers.DeleteNotice)
		}

		comments := v1.Group("/comments", middleware.AuthMiddleware())
		{
			comments.GET("", handlers.ListComments)
			comments.POST("", handlers.CreateComment)
			comments.GET("/:comment_id", handlers.GetComment)
			comments.PATCH("/:comment_id", handlers.UpdateComment)
			comments.DELETE("/:comment_id", handlers.DeleteComment)
		}
	}

	return r
}
