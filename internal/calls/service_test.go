package calls

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"voice-agent-platform/internal/telephony"
)

type fakeResolver map[string]string

func (f fakeResolver) AssignedAgent(ctx context.Context, phone string) (string, bool, error) {
	id, ok := f[phone]
	return id, ok, nil
}

func TestRecordCallEvent_UpsertsByProviderID(t *testing.T) {
	repo := NewMemoryRepo()
	repo.AgentNames["agent-1"] = "Support Bot"
	svc := NewService(repo, fakeResolver{"+14155550100": "agent-1"})
	ctx := context.Background()
	t0 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	events := []telephony.CallEvent{
		{ProviderCallID: "CA1", From: "+12125550000", To: "+14155550100", Status: "ringing", OccurredAt: t0},
		{ProviderCallID: "CA1", To: "+14155550100", Status: "in-progress", OccurredAt: t0.Add(2 * time.Second)},
		{ProviderCallID: "CA1", To: "+14155550100", Status: "completed", DurationSeconds: 95, OccurredAt: t0.Add(97 * time.Second)},
	}
	for _, ev := range events {
		if err := svc.RecordCallEvent(ctx, ev); err != nil {
			t.Fatalf("record %s: %v", ev.Status, err)
		}
	}

	page, err := svc.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if page.Total != 1 || len(page.Calls) != 1 {
		t.Fatalf("expected a single call row, got %+v", page)
	}
	c := page.Calls[0]
	if c.Status != CallStatusCompleted || c.AgentID != "agent-1" || c.AgentName != "Support Bot" {
		t.Fatalf("unexpected call: %+v", c)
	}
	if c.Duration == nil || *c.Duration != 95 {
		t.Fatalf("expected duration 95, got %v", c.Duration)
	}
	if c.StartedAt == nil || !c.StartedAt.Equal(t0.Add(2*time.Second)) {
		t.Fatalf("expected first start time kept, got %v", c.StartedAt)
	}
	if c.EndedAt == nil || c.From != "+12125550000" {
		t.Fatalf("expected end time and caller kept, got %+v", c)
	}
}

func TestRecordCallEvent_RequiresCallID(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	if err := svc.RecordCallEvent(context.Background(), telephony.CallEvent{Status: "ringing"}); !errors.Is(err, ErrMissingCallID) {
		t.Fatalf("expected ErrMissingCallID, got %v", err)
	}
}

func TestRecent_PaginatesNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		ev := telephony.CallEvent{
			ProviderCallID: fmt.Sprintf("CA%02d", i),
			To:             "+14155550100",
			Status:         "completed",
			OccurredAt:     t0.Add(time.Duration(i) * time.Minute),
		}
		if err := svc.RecordCallEvent(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	first, _ := svc.Recent(ctx, 0)
	if first.Page != 1 || len(first.Calls) != PerPage || first.TotalPages != 3 {
		t.Fatalf("unexpected first page: page=%d len=%d pages=%d", first.Page, len(first.Calls), first.TotalPages)
	}
	if first.Calls[0].ProviderCallID != "CA11" {
		t.Fatalf("expected newest first, got %s", first.Calls[0].ProviderCallID)
	}
	last, _ := svc.Recent(ctx, 3)
	if len(last.Calls) != 2 || last.Calls[1].ProviderCallID != "CA00" {
		t.Fatalf("unexpected last page: %+v", last.Calls)
	}
	beyond, _ := svc.Recent(ctx, 9)
	if len(beyond.Calls) != 0 || beyond.Total != 12 {
		t.Fatalf("expected empty page past the end, got %+v", beyond)
	}
}

func TestRecordCallEvent_LateEventKeepsTerminalStatus(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	events := []telephony.CallEvent{
		{ProviderCallID: "CA1", To: "+14155550100", Status: "completed", DurationSeconds: 95, OccurredAt: t0.Add(97 * time.Second)},
		{ProviderCallID: "CA1", To: "+14155550100", Status: "in-progress", OccurredAt: t0.Add(2 * time.Second)},
		{ProviderCallID: "CA1", To: "+14155550100", Status: "ringing", OccurredAt: t0},
	}
	for _, ev := range events {
		if err := svc.RecordCallEvent(ctx, ev); err != nil {
			t.Fatalf("record %s: %v", ev.Status, err)
		}
	}

	page, err := svc.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	c := page.Calls[0]
	if c.Status != CallStatusCompleted {
		t.Fatalf("completed call moved to %q", c.Status)
	}
	if c.EndedAt == nil || c.Duration == nil || *c.Duration != 95 {
		t.Fatalf("expected end time and duration kept, got %+v", c)
	}
}

func TestRecent_RejectsPageBeyondMax(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	if _, err := svc.Recent(context.Background(), MaxPage+1); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, err := svc.Recent(context.Background(), int(^uint(0)>>1)); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange for max int, got %v", err)
	}
}
