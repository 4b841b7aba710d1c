package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/response"
)

type AuthMiddleware struct {
	auth     service.AuthService
	userRepo repository.UserRepository
}

func NewAuthMiddleware(auth service.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, userRepo: userRepo}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		userID, err := m.auth.ParseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID.String())
		c.Next()
	}
}

// RequirePermission loads the caller's role and rejects the request unless it
// carries the named permission. Locked accounts fail every permission check.
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		if !user.Role.HasPermission(permission) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
