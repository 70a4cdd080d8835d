package main

import (
	"context"
	"net/http"

	"voice-agent-platform/internal/app"
	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/httpapi"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/internal/rbac"
	"voice-agent-platform/internal/session"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	Auth     *auth.Manager
	App      *app.App
	Health   func(ctx context.Context) error
	Handlers httpapi.Handlers
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Provider webhooks, signed with the Twilio auth token.
	{
		wh := d.App.Webhooks
		twilio := r.Group("/webhooks/twilio")
		twilio.Use(wh.VerifySignature())
		twilio.POST("/voice", wh.HandleInboundCall)
		twilio.POST("/status", wh.HandleCallStatus)
	}

	h := d.Handlers

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.Auth))

	// Session lifecycle runs before a session exists.
	v1.POST("/session", h.StartSession)
	v1.DELETE("/session", h.EndSession)

	// Everything else is the admin dashboard.
	dash := v1.Group("")
	dash.Use(session.RequireSession(d.App.Sessions), rbac.RequireAdmin())
	{
		dash.GET("/session", h.CurrentSession)

		agents := dash.Group("/agents")
		agents.GET("", h.ListAgents)
		agents.POST("", h.CreateAgent)
		agents.GET("/resolve-voice", h.ResolveVoice)
		agents.GET("/:agent_id", h.GetAgent)
		agents.PATCH("/:agent_id", h.UpdateAgent)
		agents.PUT("/:agent_id/status", h.SetAgentStatus)
		agents.DELETE("/:agent_id", h.DeleteAgent)

		numbers := dash.Group("/numbers")
		numbers.GET("", h.ListNumbers)
		numbers.POST("", h.ProvisionNumber)
		numbers.GET("/search", h.SearchNumbers)
		numbers.GET("/available", h.ListAvailableNumbers)
		numbers.GET("/fee", h.NumberFee)
		numbers.PUT("/:number_id/agent", h.AssignNumber)
		numbers.DELETE("/:number_id", h.ReleaseNumber)

		voices := dash.Group("/voices")
		voices.GET("", h.ListVoices)
		voices.POST("/sync", h.SyncVoices)
		voices.POST("/previews/organize", h.OrganizePreviews)
		voices.POST("/previews/revert", h.RevertPreviews)

		dash.GET("/calls", h.RecentCalls)
		dash.GET("/reports/calls", h.CallsSummary)

		admin := dash.Group("/admin")
		admin.POST("/reconcile/numbers", h.ReconcileNumbers)
		admin.POST("/reconcile/agents", h.ReconcileAgents)
	}
}
