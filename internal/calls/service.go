package calls

import (
	"context"
	"errors"
	"time"

	"voice-agent-platform/internal/telephony"
	"voice-agent-platform/pkg/logger"

	"github.com/google/uuid"
)

// PerPage is the size of a recent calls page.
const PerPage = 5

// MaxPage bounds the page number so the row offset cannot overflow.
const MaxPage = 100_000

var (
	ErrMissingCallID  = errors.New("calls: provider call id required")
	ErrPageOutOfRange = errors.New("calls: page out of range")
)

// AgentResolver finds the agent behind a dialed number.
type AgentResolver interface {
	AssignedAgent(ctx context.Context, phoneNumber string) (agentID string, owned bool, err error)
}

type Service struct {
	repo   Repository
	agents AgentResolver
}

func NewService(repo Repository, agents AgentResolver) *Service {
	return &Service{repo: repo, agents: agents}
}

// RecordCallEvent upserts the call row for a provider lifecycle event.
// It satisfies telephony.CallEventRecorder.
func (s *Service) RecordCallEvent(ctx context.Context, ev telephony.CallEvent) error {
	if ev.ProviderCallID == "" {
		return ErrMissingCallID
	}
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	c := Call{
		ID:             uuid.NewString(),
		ProviderCallID: ev.ProviderCallID,
		AgentID:        ev.AgentID,
		PhoneNumber:    ev.To,
		From:           ev.From,
		Status:         ParseStatus(ev.Status),
		CreatedAt:      at,
	}
	if c.Status == "" {
		c.Status = CallStatusRinging
	}
	if c.AgentID == "" && s.agents != nil && ev.To != "" {
		id, owned, err := s.agents.AssignedAgent(ctx, ev.To)
		if err != nil {
			logger.From(ctx).Warn("call agent lookup failed", "to", ev.To, "err", err)
		} else if owned {
			c.AgentID = id
		}
	}
	switch {
	case c.Status == CallStatusInProgress:
		c.StartedAt = &at
	case c.Status.Terminal():
		c.EndedAt = &at
		d := ev.DurationSeconds
		c.Duration = &d
		if d > 0 {
			start := at.Add(-time.Duration(d) * time.Second)
			c.StartedAt = &start
		}
	}

	saved, err := s.repo.Upsert(ctx, c)
	if err != nil {
		return err
	}
	logger.From(ctx).Debug("call event recorded", "call_id", saved.ID, "provider_call_id", saved.ProviderCallID, "status", saved.Status)
	return nil
}

// Recent returns page (1-based) of calls, newest first.
func (s *Service) Recent(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		return Page{}, ErrPageOutOfRange
	}
	rows, total, err := s.repo.Page(ctx, (page-1)*PerPage, PerPage)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Calls:      rows,
		Page:       page,
		PerPage:    PerPage,
		Total:      total,
		TotalPages: (total + PerPage - 1) / PerPage,
	}, nil
}

func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]Call, error) {
	return s.repo.ListRange(ctx, from, to)
}
