package httpapi

import (
	"net/http"
	"strings"

	"voice-agent-platform/internal/voices"
	"voice-agent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListVoices(c *gin.Context) {
	list, err := h.Voices.List(c.Request.Context(), strings.TrimSpace(c.Query("language")))
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []voices.Voice{}
	}
	c.JSON(http.StatusOK, gin.H{"voices": list})
}

// SyncVoices answers 200 with the summary even when some voices failed.
func (h Handlers) SyncVoices(c *gin.Context) {
	sum, err := h.VoiceSync.Sync(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	logger.FromGin(c).Info("voice sync finished", "total", sum.Total, "successful", sum.Successful, "failed", sum.Failed, "skipped", sum.Skipped)
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) OrganizePreviews(c *gin.Context) {
	rep, err := h.Previews.Organize(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": rep.Moved(), "results": rep.Results})
}

func (h Handlers) RevertPreviews(c *gin.Context) {
	rep, err := h.Previews.Revert(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": rep.Moved(), "results": rep.Results})
}
