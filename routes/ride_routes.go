package routes

import (
	handlers "ridehub/internal/handlers/shared"
	"ridehub/internal/middleware"
	"ridehub/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupRideRoutes sets up the ride lifecycle routes
func SetupRideRoutes(r *gin.RouterGroup, rideHandler *handlers.RideHandler, jwtSecret string) {
	rider := middleware.RoleRequired(models.UserTypeRider)
	driver := middleware.RoleRequired(models.UserTypeDriver)
	admin := middleware.RoleRequired(models.UserTypeAdmin)

	rides := r.Group("/ride")
	rides.Use(middleware.AuthRequired(jwtSecret))
	{
		rides.POST("", rider, rideHandler.BookRide)
		rides.GET("", admin, rideHandler.ListRides)
		rides.GET("/available", driver, rideHandler.ListAvailableRides)

		rides.GET("/:id", rideHandler.GetRide)
		rides.DELETE("/:id", admin, rideHandler.DeleteRide)

		// Lifecycle transitions
		rides.POST("/:id/accept", driver, rideHandler.AcceptRide)
		rides.PUT("/:id/cancel", middleware.RoleRequired(models.UserTypeRider, models.UserTypeDriver, models.UserTypeAdmin), rideHandler.CancelRide)
		rides.POST("/:id/complete", driver, rideHandler.CompleteRide)
		rides.POST("/:id/status", driver, rideHandler.UpdateRideStatus)
		rides.POST("/:id/ignore", driver, rideHandler.IgnoreRide)
		rides.POST("/:id/request", rider, rideHandler.RequestRide)

		// Per-user listings
		rides.GET("/user/:id", rideHandler.ListUserRides)
		rides.PUT("/user/:id/cancel-all", middleware.RoleRequired(models.UserTypeRider, models.UserTypeAdmin), rideHandler.CancelAllUserRides)
		rides.GET("/driver/:driverUserId", rideHandler.ListDriverRides)
		rides.GET("/ignore/driver/:id", middleware.RoleRequired(models.UserTypeDriver, models.UserTypeAdmin), rideHandler.ListIgnoredRides)
	}
}
