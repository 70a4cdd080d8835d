package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"voice-agent-platform/internal/auth"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
// Callers treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Append fills id, timestamp, actor and client IP (from ctx) and stores e.
func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.ActorUserID == "" {
		if uid, err := auth.UserID(ctx); err == nil {
			e.ActorUserID = uid
		}
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIP(ctx)
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) LogNumberPurchased(ctx context.Context, phoneNumberID, sid, phoneNumber string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeNumberPurchased,
		PhoneNumberID: phoneNumberID,
		TwilioSID:     sid,
		Message:       "number purchased " + phoneNumber,
	})
}

// LogUnrecordedPurchase records a number bought at the provider whose row
// could not be written. Reconciliation picks these up.
func (s *Service) LogUnrecordedPurchase(ctx context.Context, sid, phoneNumber string, cause error) error {
	meta := map[string]string{"phone_number": phoneNumber}
	if cause != nil {
		meta["error"] = cause.Error()
	}
	return s.Append(ctx, Event{
		Type:      EventTypeUnrecordedPurchase,
		TwilioSID: sid,
		Message:   "purchased number not recorded",
		Metadata:  encodeMeta(meta),
	})
}

func (s *Service) LogNumberAssigned(ctx context.Context, phoneNumberID, agentID string) error {
	msg := "number assigned"
	if agentID == "" {
		msg = "number unassigned"
	}
	return s.Append(ctx, Event{
		Type:          EventTypeNumberAssigned,
		PhoneNumberID: phoneNumberID,
		AgentID:       agentID,
		Message:       msg,
	})
}

func (s *Service) LogNumberReleased(ctx context.Context, phoneNumberID, sid string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeNumberReleased,
		PhoneNumberID: phoneNumberID,
		TwilioSID:     sid,
		Message:       "number released",
	})
}

func (s *Service) LogVoiceSync(ctx context.Context, total, successful, failed int) error {
	return s.Append(ctx, Event{
		Type:     EventTypeVoiceSync,
		Message:  "voice catalog sync",
		Metadata: encodeMeta(map[string]int{"total": total, "successful": successful, "failed": failed}),
	})
}

// LogAdminMaintenance records operator maintenance runs (preview moves, reconciliation).
func (s *Service) LogAdminMaintenance(ctx context.Context, operation string, metadata any) error {
	return s.Append(ctx, Event{
		Type:     EventTypeAdminMaintenance,
		Message:  operation,
		Metadata: encodeMeta(metadata),
	})
}

func encodeMeta(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
