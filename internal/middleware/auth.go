package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stratolift/internal/models"
	"stratolift/internal/repository"
	"stratolift/internal/security"
)

const (
	currentUserKey  = "current_user"
	accessClaimsKey = "access_claims"
)

// Auth admits requests carrying a valid bearer token for an active user.
func Auth(secret string, users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No authentication token provided"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := security.ParseAccessToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not found"})
			return
		}
		if user.Status != models.UserStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Account is not active"})
			return
		}

		c.Set(accessClaimsKey, *claims)
		c.Set(currentUserKey, user.User)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and
// lets the request through either way.
func OptionalAuth(secret string, users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || tokenStr == "" {
			c.Next()
			return
		}
		if claims, err := security.ParseAccessToken(tokenStr, secret); err == nil {
			if user, err := users.GetByID(c.Request.Context(), claims.UserID); err == nil && user.Status == models.UserStatusActive {
				c.Set(accessClaimsKey, *claims)
				c.Set(currentUserKey, user.User)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
