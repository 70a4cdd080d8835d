package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voice-agent-platform/internal/auth"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_CapturesActorAndIP(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	ctx := auth.WithIdentity(context.Background(), "u1", "s1", "ops@example.test")
	ctx = WithClientIP(ctx, "1.2.3.4")
	if err := svc.LogNumberAssigned(ctx, "pn1", "a1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.ActorUserID != "u1" || e.IPAddress != "1.2.3.4" {
		t.Fatalf("expected actor and ip captured: %+v", e)
	}
	if e.Type != EventTypeNumberAssigned || e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestService_UnrecordedPurchaseCarriesCause(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogUnrecordedPurchase(context.Background(), "PN1", "+14155550100", errors.New("db down")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e := repo.Events()[0]
	if e.TwilioSID != "PN1" || !strings.Contains(e.Metadata, "db down") {
		t.Fatalf("unexpected event: %+v", e)
	}
}
