package httpapi

import (
	"net/http"
	"time"

	"voice-agent-platform/internal/calls"
	"voice-agent-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

const defaultSummaryWindow = 30 * 24 * time.Hour

type callView struct {
	calls.Call
	DurationDisplay string `json:"duration_display"`
}

type callPageView struct {
	Calls      []callView `json:"calls"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// RecentCalls lists calls newest first, calls.PerPage at a time.
func (h Handlers) RecentCalls(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		badRequest(c, "page must be a positive integer")
		return
	}
	p, err := h.Calls.Recent(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}
	out := callPageView{
		Calls:      make([]callView, 0, len(p.Calls)),
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
	for _, call := range p.Calls {
		out.Calls = append(out.Calls, callView{Call: call, DurationDisplay: reporting.FormatDuration(call.Duration)})
	}
	c.JSON(http.StatusOK, out)
}

// CallsSummary aggregates calls in [from, to). Both are RFC 3339; the
// default window is the last 30 days.
func (h Handlers) CallsSummary(c *gin.Context) {
	to := h.now()
	from := to.Add(-defaultSummaryWindow)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "from must be RFC 3339")
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "to must be RFC 3339")
			return
		}
		to = t
	}
	sum, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.TimeRange{From: from, To: to})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
