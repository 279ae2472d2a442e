package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"skillbridge/internal/api/middleware"
)

// userIDFromContext reads the authenticated user id set by the auth middleware.
func userIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}

// roleFromContext reads the authenticated caller's role.
func roleFromContext(c *gin.Context) (string, bool) {
	value, ok := c.Get(middleware.RoleKey)
	if !ok {
		return "", false
	}
	role, ok := value.(string)
	return role, ok
}

// requestLogger returns the request-scoped logger, falling back to fallback
// and then to slog.Default.
func requestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
