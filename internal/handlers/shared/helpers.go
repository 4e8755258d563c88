package handlers

import (
	"errors"
	"io"

	"ridehub/internal/middleware"
	"ridehub/internal/models"
	"ridehub/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectIDParam parses a path parameter, writing a 400 when it is malformed.
func objectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+label)
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindOptionalJSON binds a request body that may be absent.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func currentUser(c *gin.Context) (primitive.ObjectID, models.UserType, bool) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
	}
	return userID, role, ok
}

// actingDriver resolves the driver a driver-side action is performed as.
// Drivers act as themselves. Admins may name a driver; riders may not.
func actingDriver(c *gin.Context, requested string) (primitive.ObjectID, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return primitive.NilObjectID, false
	}

	if requested == "" {
		if role == models.UserTypeDriver {
			return userID, true
		}
		return primitive.NilObjectID, true
	}

	driverUserID, err := primitive.ObjectIDFromHex(requested)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver user ID")
		return primitive.NilObjectID, false
	}
	if role == models.UserTypeRider || (role == models.UserTypeDriver && driverUserID != userID) {
		utils.ForbiddenResponse(c)
		return primitive.NilObjectID, false
	}
	return driverUserID, true
}

// ownerOrAdmin rejects callers acting on another user's resources.
func ownerOrAdmin(c *gin.Context, ownerID primitive.ObjectID) bool {
	userID, role, ok := currentUser(c)
	if !ok {
		return false
	}
	if role != models.UserTypeAdmin && userID != ownerID {
		utils.ForbiddenResponse(c)
		return false
	}
	return true
}
