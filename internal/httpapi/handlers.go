package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"voice-agent-platform/internal/agents"
	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/calls"
	"voice-agent-platform/internal/numbers"
	"voice-agent-platform/internal/reporting"
	"voice-agent-platform/internal/session"
	"voice-agent-platform/internal/subscriptions"
	"voice-agent-platform/internal/voices"
	"voice-agent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Sessions *session.Manager

	Agents  *agents.Service
	Numbers *numbers.Service

	Voices    *voices.Service
	VoiceSync *voices.Syncer
	Previews  *voices.Organizer

	Calls         *calls.Service
	Reporting     *reporting.Service
	Subscriptions *subscriptions.Service

	NumberSweep *numbers.Reconciler
	AgentSweep  *agents.Reconciler

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}

// --- Session ---

// StartSession is called once after the auth provider signs the user in.
// The response tells the dashboard whether it may be shown.
func (h Handlers) StartSession(c *gin.Context) {
	ctx := c.Request.Context()
	uid, err := auth.UserID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "user required", Code: "UNAUTHENTICATED"})
		return
	}
	sid, err := auth.SessionID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "session required", Code: "UNAUTHENTICATED"})
		return
	}
	info, err := h.Sessions.Init(ctx, sid, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	logger.FromGin(c).Info("session started", "user_id", uid, "is_admin", info.IsAdmin)
	c.JSON(http.StatusOK, gin.H{"session": info, "authorized": info.IsAuthorized()})
}

func (h Handlers) EndSession(c *gin.Context) {
	sid, _ := auth.SessionID(c.Request.Context())
	if err := h.Sessions.Teardown(c.Request.Context(), sid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) CurrentSession(c *gin.Context) {
	info, _ := session.Current(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"session": info, "authorized": info.IsAuthorized()})
}

// --- Admin maintenance ---

func (h Handlers) ReconcileNumbers(c *gin.Context) {
	rep, err := h.NumberSweep.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h Handlers) ReconcileAgents(c *gin.Context) {
	rep, err := h.AgentSweep.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
