package middleware

import (
	"errors"
	"net/http"
	"strings"

	"ridehub/internal/models"
	"ridehub/internal/utils"
	"ridehub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthRequired validates the bearer token and sets the caller's id and role
// on the context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if errors.Is(err, utils.ErrTokenExpired) {
			utils.ErrorResponse(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired")
			c.Abort()
			return
		}
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
			c.Abort()
			return
		}

		userID, err := claims.ObjectID()
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid user ID in token")
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, userID)
		c.Set(utils.ContextUserType, models.UserType(claims.UserType))
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), userID.Hex()))

		c.Next()
	}
}

// RoleRequired lets the request through when the caller has one of roles.
// It must run after AuthRequired.
func RoleRequired(roles ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, exists := c.Get(utils.ContextUserType)
		if !exists {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		role, _ := userType.(models.UserType)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c)
		c.Abort()
	}
}

// CurrentUser returns the caller set by AuthRequired.
func CurrentUser(c *gin.Context) (primitive.ObjectID, models.UserType, bool) {
	rawID, exists := c.Get(utils.ContextUserID)
	if !exists {
		return primitive.NilObjectID, "", false
	}
	userID, ok := rawID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, "", false
	}
	userType, _ := c.Get(utils.ContextUserType)
	role, _ := userType.(models.UserType)
	return userID, role, true
}
