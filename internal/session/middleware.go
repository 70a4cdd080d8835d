package session

import (
	"errors"
	"net/http"

	"voice-agent-platform/internal/auth"
	"voice-agent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireSession loads the caller's session, records activity and attaches it
// to the request context. Must run after auth.RequireAccessToken.
func RequireSession(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		uid, err := auth.UserID(ctx)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user required", "code": "UNAUTHENTICATED"})
			return
		}
		sid, err := auth.SessionID(ctx)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session required", "code": "UNAUTHENTICATED"})
			return
		}

		info, err := m.Touch(ctx, sid, uid)
		switch {
		case errors.Is(err, ErrExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signed out due to inactivity", "code": "SESSION_EXPIRED"})
			return
		case errors.Is(err, ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session", "code": "SESSION_REQUIRED"})
			return
		case err != nil:
			logger.FromGin(c).Error("session lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed", "code": "INTERNAL"})
			return
		}

		c.Request = c.Request.WithContext(WithInfo(ctx, info))
		c.Next()
	}
}
