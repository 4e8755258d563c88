package routes

import (
	handlers "ridehub/internal/handlers/shared"
	"ridehub/internal/middleware"
	"ridehub/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupProfileRoutes sets up the rider and driver profile routes
func SetupProfileRoutes(r *gin.RouterGroup, profileHandler *handlers.ProfileHandler, jwtSecret string) {
	riders := r.Group("/rider")
	riders.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.UserTypeRider))
	{
		riders.POST("/profile", profileHandler.CreateRiderProfile)
		riders.GET("/profile", profileHandler.GetRiderProfile)
	}

	drivers := r.Group("/driver")
	drivers.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.UserTypeDriver))
	{
		drivers.POST("/profile", profileHandler.CreateDriverProfile)
		drivers.GET("/profile", profileHandler.GetDriverProfile)
	}
}
