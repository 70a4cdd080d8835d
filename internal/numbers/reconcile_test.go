package numbers

import (
	"context"
	"testing"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/telephony"
)

func TestReconciler_RecordsUnrecordedPurchases(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	if _, _, err := repo.Insert(ctx, PhoneNumber{ID: "n1", PhoneNumber: "+14155550100", TwilioSID: "PN1", Status: StatusActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := repo.Insert(ctx, PhoneNumber{ID: "n3", PhoneNumber: "+14155550109", TwilioSID: "PN-gone", Status: StatusActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dir := &fakeDirectory{owned: []telephony.IncomingNumber{
		{SID: "PN1", PhoneNumber: "+14155550100"},
		{SID: "PN2", PhoneNumber: "+12125550199", FriendlyName: "(212) 555-0199"},
	}}
	auditRepo := audit.NewMemoryRepo()
	r := Reconciler{Directory: dir, Repo: repo, Listings: cache.NewMemoryStore(), Audit: audit.NewService(auditRepo)}

	rep, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if rep.Checked != 2 || len(rep.Inserted) != 1 || rep.Inserted[0] != "PN2" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Missing) != 1 || rep.Missing[0] != "PN-gone" {
		t.Fatalf("expected missing sid reported, got %+v", rep.Missing)
	}

	p, err := repo.GetBySID(ctx, "PN2")
	if err != nil {
		t.Fatalf("expected repaired row: %v", err)
	}
	if p.AreaCode != "212" || p.Status != StatusActive || p.AgentID != "" {
		t.Fatalf("unexpected repaired row: %+v", p)
	}

	// A second sweep has nothing to do.
	rep, err = r.Sweep(ctx)
	if err != nil || len(rep.Inserted) != 0 {
		t.Fatalf("expected idempotent sweep, got %+v %v", rep, err)
	}
	if len(auditRepo.Events()) != 2 {
		t.Fatalf("expected one maintenance event per sweep")
	}
}
