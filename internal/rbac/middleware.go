package rbac

import (
	"net/http"

	"voice-agent-platform/internal/session"

	"github.com/gin-gonic/gin"
)

// RequireAdmin allows the request only when the live session belongs to an
// admin profile. Must run after session.RequireSession.
// Rules:
// - no session attached: 401
// - session for a non-admin user: 403
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := session.Current(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session required", "code": "SESSION_REQUIRED"})
			return
		}
		if !info.IsAuthorized() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "code": "FORBIDDEN"})
			return
		}
		c.Next()
	}
}
