package telephony

import (
	"net/http"
	"time"

	"voice-agent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TwilioWebhookHandler converts Twilio webhooks to internal types,
// delegates decisions to the router and writes TwiML.
type TwilioWebhookHandler struct {
	Router InboundRouter
	Calls  CallEventRecorder

	// AuthToken enables X-Twilio-Signature validation when set.
	AuthToken string

	Now func() time.Time
}

func (h TwilioWebhookHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}

// VerifySignature rejects webhooks not signed with the account auth token.
func (h TwilioWebhookHandler) VerifySignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.AuthToken == "" {
			c.Next()
			return
		}
		if !ValidTwilioSignature(c.Request, h.AuthToken) {
			logger.FromGin(c).Warn("twilio signature rejected", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

func (h TwilioWebhookHandler) HandleInboundCall(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Router == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "inbound router not configured"})
		return
	}

	form, err := ParseTwilioVoiceForm(c.Request)
	if err != nil {
		log.Warn("twilio webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	in := form.InboundCallRequest(h.now())
	res, err := h.Router.RouteInboundCall(c.Request.Context(), in)
	if err != nil {
		log.Error("inbound call routing failed", "call_sid", form.CallSid, "err", err)
		res = InboundCallResult{Action: InboundCallActionReject, Reason: "routing_error"}
	}
	log.Info("inbound call routed", "call_sid", form.CallSid, "to", form.To, "action", res.Action, "reason", res.Reason)

	if h.Calls != nil && form.CallSid != "" {
		ev := form.CallEvent(h.now())
		ev.AgentID = res.AgentID
		if ev.Status == "" {
			ev.Status = "ringing"
		}
		if err := h.Calls.RecordCallEvent(c.Request.Context(), ev); err != nil {
			log.Warn("call event record failed", "call_sid", form.CallSid, "err", err)
		}
	}

	twiml, err := RenderTwiML(res)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

// HandleCallStatus records status callbacks. Twilio ignores the body.
func (h TwilioWebhookHandler) HandleCallStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseTwilioVoiceForm(c.Request)
	if err != nil || form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if h.Calls == nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.Calls.RecordCallEvent(c.Request.Context(), form.CallEvent(h.now())); err != nil {
		log.Error("call status record failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "record failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
