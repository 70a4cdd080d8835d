package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/numbers"
)

type fakeVoices map[string]string

func (f fakeVoices) VoiceLanguage(ctx context.Context, voiceID string) (string, bool, error) {
	lang, ok := f[voiceID]
	return lang, ok, nil
}

type fixture struct {
	svc     *Service
	repo    *MemoryRepo
	numbers *numbers.MemoryRepo
	audit   *audit.MemoryRepo
	cache   *cache.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		repo:    NewMemoryRepo(),
		numbers: numbers.NewMemoryRepo(),
		audit:   audit.NewMemoryRepo(),
		cache:   cache.NewMemoryStore(),
	}
	f.svc = NewService(Deps{
		Repo:     f.repo,
		Numbers:  f.numbers,
		Voices:   fakeVoices{"v-en": "en", "v-es": "es"},
		Listings: f.cache,
		Audit:    audit.NewService(f.audit),
	})
	return f
}

func (f fixture) addNumber(t *testing.T, id, phone string) {
	t.Helper()
	_, _, err := f.numbers.Insert(context.Background(), numbers.PhoneNumber{
		ID:          id,
		PhoneNumber: phone,
		TwilioSID:   "PN-" + id,
		Status:      numbers.StatusActive,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert number: %v", err)
	}
}

func TestCreate_WithoutNumber(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	ctx := auth.WithIdentity(context.Background(), "user-1", "sess-1", "a@example.com")

	a, err := f.svc.Create(ctx, CreateInput{Name: "Support Bot", Prompt: "Help with billing"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusInactive || a.PhoneNumber != "" || a.Language != DefaultLanguage {
		t.Fatalf("unexpected agent: %+v", a)
	}
	if a.CreatedBy != "user-1" {
		t.Fatalf("expected created_by user-1, got %q", a.CreatedBy)
	}
	if a.Settings != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", a.Settings)
	}
	p, _ := f.numbers.Get(ctx, "n1")
	if p.AgentID != "" {
		t.Fatalf("number must stay unassigned, got %q", p.AgentID)
	}
}

func TestCreate_LinksNumber(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CreateInput{Name: "Sales", Prompt: "Sell", PhoneNumberID: "n1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.PhoneNumber != "+14155550100" {
		t.Fatalf("expected mirrored phone number, got %q", a.PhoneNumber)
	}
	p, _ := f.numbers.Get(ctx, "n1")
	if p.AgentID != a.ID {
		t.Fatalf("expected number linked to %s, got %q", a.ID, p.AgentID)
	}
	stored, _ := f.repo.Get(ctx, a.ID)
	if stored.PhoneNumber != "+14155550100" {
		t.Fatalf("stored agent not mirrored: %+v", stored)
	}
	events := f.audit.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeNumberAssigned {
		t.Fatalf("expected one number_assigned event, got %+v", events)
	}
}

func TestCreate_NumberTaken(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", PhoneNumberID: "n1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.Create(ctx, CreateInput{Name: "B", Prompt: "p", PhoneNumberID: "n1"})
	if !errors.Is(err, numbers.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	list, _ := f.repo.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected no second agent, got %d", len(list))
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	temp := 2.0
	_, err := f.svc.Create(context.Background(), CreateInput{
		Name:     "  ",
		Language: "it",
		Settings: &SettingsInput{Temperature: &temp},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Fields) != 4 {
		t.Fatalf("expected name, prompt, language and temperature errors, got %+v", ve.Fields)
	}
}

func TestCreate_VoiceChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", VoiceID: "missing"})
	if !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
	_, err = f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", VoiceID: "v-es", Language: "en"})
	if !errors.Is(err, ErrVoiceLanguageMismatch) {
		t.Fatalf("expected ErrVoiceLanguageMismatch, got %v", err)
	}
	a, err := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", VoiceID: "v-es", Language: "es"})
	if err != nil || a.VoiceID != "v-es" {
		t.Fatalf("expected spanish voice accepted, got %+v %v", a, err)
	}
}

func TestUpdate_LanguageChangeDropsVoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", VoiceID: "v-en"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	es := "es"
	got, err := f.svc.Update(ctx, a.ID, UpdateInput{Language: &es})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Language != "es" || got.VoiceID != "" {
		t.Fatalf("expected voice cleared on language change, got %+v", got)
	}
}

func TestUpdate_ReassignAndUnassign(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	f.addNumber(t, "n2", "+14155550101")
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", PhoneNumberID: "n1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	n2 := "n2"
	got, err := f.svc.Update(ctx, a.ID, UpdateInput{PhoneNumberID: &n2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.PhoneNumber != "+14155550101" {
		t.Fatalf("expected new number mirrored, got %q", got.PhoneNumber)
	}
	p1, _ := f.numbers.Get(ctx, "n1")
	if p1.AgentID != "" {
		t.Fatalf("old number must be freed, got %q", p1.AgentID)
	}

	none := ""
	got, err = f.svc.Update(ctx, a.ID, UpdateInput{PhoneNumberID: &none})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	p2, _ := f.numbers.Get(ctx, "n2")
	if got.PhoneNumber != "" || p2.AgentID != "" {
		t.Fatalf("expected unassigned, got agent=%q number=%q", got.PhoneNumber, p2.AgentID)
	}
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p"})

	got, err := f.svc.SetStatus(ctx, a.ID, StatusActive)
	if err != nil || got.Status != StatusActive {
		t.Fatalf("expected active, got %+v %v", got, err)
	}
	if _, err := f.svc.SetStatus(ctx, a.ID, "paused"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	status, found, err := f.svc.AgentStatus(ctx, a.ID)
	if err != nil || !found || status != StatusActive {
		t.Fatalf("unexpected status lookup: %q %v %v", status, found, err)
	}
	if _, found, _ := f.svc.AgentStatus(ctx, "nope"); found {
		t.Fatalf("unknown agent must not be found")
	}
}

func TestDelete_FreesNumber(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", PhoneNumberID: "n1"})

	if err := f.svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p, _ := f.numbers.Get(ctx, "n1")
	if !p.Available() {
		t.Fatalf("expected number available again, got %+v", p)
	}
	if ok, _ := f.svc.AgentExists(ctx, a.ID); ok {
		t.Fatalf("deleted agent must not exist")
	}
}

func TestList_CachedUntilWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	first, _ := f.svc.List(ctx)

	// Bypass the service so the cache is not invalidated.
	_ = f.repo.Insert(ctx, nil, Agent{ID: "direct", Name: "B", Prompt: "p", CreatedAt: time.Now()})
	cached, _ := f.svc.List(ctx)
	if len(cached) != len(first) {
		t.Fatalf("expected cached listing, got %d", len(cached))
	}

	if _, err := f.svc.Create(ctx, CreateInput{Name: "C", Prompt: "p"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, _ := f.svc.List(ctx)
	if len(fresh) != 3 {
		t.Fatalf("expected invalidated listing with 3 agents, got %d", len(fresh))
	}
}

func TestUnassignNumber_ClearsMirror(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p", PhoneNumberID: "n1"})

	if err := f.svc.UnassignNumber(ctx, "n1"); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	got, _ := f.svc.Get(ctx, a.ID)
	if got.PhoneNumber != "" {
		t.Fatalf("expected mirror cleared, got %q", got.PhoneNumber)
	}
}

func TestReconciler_RepairsMirror(t *testing.T) {
	f := newFixture(t)
	f.addNumber(t, "n1", "+14155550100")
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, CreateInput{Name: "A", Prompt: "p"})
	b, _ := f.svc.Create(ctx, CreateInput{Name: "B", Prompt: "p"})

	// Link behind the service's back, and leave a stale mirror on b.
	if _, err := f.numbers.Link(ctx, nil, "n1", a.ID); err != nil {
		t.Fatalf("link: %v", err)
	}
	_ = f.repo.SetPhoneNumber(ctx, nil, b.ID, "+19995550000")
	f.addNumber(t, "n2", "+14155550101")
	_, _ = f.numbers.Link(ctx, nil, "n2", "ghost")

	rep, err := Reconciler{Agents: f.repo, Numbers: f.numbers, Listings: f.cache}.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if rep.Checked != 2 || len(rep.Repaired) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Dangling) != 1 || rep.Dangling[0] != "n2" {
		t.Fatalf("expected n2 dangling, got %+v", rep.Dangling)
	}
	ga, _ := f.repo.Get(ctx, a.ID)
	gb, _ := f.repo.Get(ctx, b.ID)
	if ga.PhoneNumber != "+14155550100" || gb.PhoneNumber != "" {
		t.Fatalf("mirrors not repaired: a=%q b=%q", ga.PhoneNumber, gb.PhoneNumber)
	}
}
