package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillbridge/internal/auth"
)

// Context keys set by AuthMiddleware and read by handlers and RequireRole.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
}

// AuthMiddleware validates the bearer token and puts the caller's id and role
// on the context. Rejection order: missing header, malformed header, then
// invalid/expired token.
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}
