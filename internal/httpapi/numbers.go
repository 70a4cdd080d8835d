package httpapi

import (
	"net/http"
	"strings"

	"voice-agent-platform/internal/numbers"

	"github.com/gin-gonic/gin"
)

func (h Handlers) SearchNumbers(c *gin.Context) {
	list, err := h.Numbers.Search(c.Request.Context(), strings.TrimSpace(c.Query("area_code")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": list})
}

// ProvisionNumber runs the search/purchase/persist workflow. Failures carry
// the workflow state so the form can show which step failed.
func (h Handlers) ProvisionNumber(c *gin.Context) {
	var req numbers.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Numbers.Provision(c.Request.Context(), req)
	if err != nil {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			writeError(c, err)
			return
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":     body.Error,
			"code":      body.Code,
			"retryable": body.Retryable,
			"provision": res,
		})
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) ListNumbers(c *gin.Context) {
	list, err := h.Numbers.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []numbers.PhoneNumber{}
	}
	c.JSON(http.StatusOK, gin.H{"phone_numbers": list})
}

func (h Handlers) ListAvailableNumbers(c *gin.Context) {
	list, err := h.Numbers.ListAvailable(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []numbers.PhoneNumber{}
	}
	c.JSON(http.StatusOK, gin.H{"phone_numbers": list})
}

type assignRequest struct {
	// AgentID "" unassigns the number.
	AgentID string `json:"agent_id"`
}

func (h Handlers) AssignNumber(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	p, err := h.Numbers.Assign(c.Request.Context(), c.Param("number_id"), strings.TrimSpace(req.AgentID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) ReleaseNumber(c *gin.Context) {
	if err := h.Numbers.Release(c.Request.Context(), c.Param("number_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NumberFee shows the caller's monthly per-number fee on the provisioning form.
func (h Handlers) NumberFee(c *gin.Context) {
	fee, err := h.Subscriptions.NumberFee(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fee)
}
