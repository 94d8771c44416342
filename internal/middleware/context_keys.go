package middleware

import (
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// userIDKey is the key used to store the authenticated user's ID in the request context.
const userIDKey = contextKey("userID")

// userCtxKey is the key used to store the full authenticated *domain.User.
const userCtxKey = contextKey("user")

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// GetUserFromContext retrieves the authenticated user loaded by the auth
// middleware. Returns nil, false on anonymous requests.
func GetUserFromContext(c *gin.Context) (*domain.User, bool) {
	user, ok := c.Request.Context().Value(userCtxKey).(*domain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
