package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-agent-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// CallSource lists calls for a time range. calls.Service satisfies it.
type CallSource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]calls.Call, error)
}

type Service struct {
	calls CallSource
}

func NewService(src CallSource) *Service { return &Service{calls: src} }

func (s *Service) CallsSummary(ctx context.Context, r TimeRange) (CallsSummary, error) {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.calls == nil {
		return CallsSummary{}, errors.New("reporting: call source not configured")
	}

	rows, err := s.calls.ListRange(ctx, r.From, r.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{Range: r, ByAgent: map[string]int{}}
	timed := 0
	for _, c := range rows {
		out.TotalCalls++
		out.ByAgent[c.AgentID]++
		if c.Duration != nil {
			out.TotalDurationSeconds += *c.Duration
			timed++
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		}
	}
	if timed > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / timed
		avg := out.AverageDurationSeconds
		out.AverageDuration = FormatDuration(&avg)
	} else {
		out.AverageDuration = FormatDuration(nil)
	}
	return out, nil
}

// FormatDuration renders seconds as m:ss, or "N/A" when unknown.
func FormatDuration(seconds *int) string {
	if seconds == nil {
		return "N/A"
	}
	s := *seconds
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
