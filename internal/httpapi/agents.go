package httpapi

import (
	"net/http"

	"voice-agent-platform/internal/agents"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListAgents(c *gin.Context) {
	list, err := h.Agents.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []agents.Agent{}
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

func (h Handlers) GetAgent(c *gin.Context) {
	a, err := h.Agents.Get(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) CreateAgent(c *gin.Context) {
	var in agents.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	a, err := h.Agents.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h Handlers) UpdateAgent(c *gin.Context) {
	var in agents.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	a, err := h.Agents.Update(c.Request.Context(), c.Param("agent_id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) SetAgentStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	a, err := h.Agents.SetStatus(c.Request.Context(), c.Param("agent_id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) DeleteAgent(c *gin.Context) {
	if err := h.Agents.Delete(c.Request.Context(), c.Param("agent_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolveVoice reports which voice the agent form should keep after a
// language change. An empty voice_id means the selection must be cleared.
func (h Handlers) ResolveVoice(c *gin.Context) {
	v, err := h.Agents.ResolveVoice(c.Request.Context(), c.Query("voice_id"), c.Query("language"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voice_id": v})
}
