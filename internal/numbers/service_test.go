package numbers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/telephony"
)

type fakeDirectory struct {
	mu         sync.Mutex
	candidates map[string][]telephony.CandidateNumber
	purchaseFn func(phoneNumber string) (telephony.PurchaseResult, error)
	owned      []telephony.IncomingNumber

	releaseErr error

	searches  int
	purchases []string
	released  []string
}

func (f *fakeDirectory) SearchNumbers(ctx context.Context, areaCode string) ([]telephony.CandidateNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := telephony.ValidateAreaCode(areaCode); err != nil {
		return nil, err
	}
	f.searches++
	c := f.candidates[areaCode]
	if len(c) == 0 {
		return nil, telephony.ErrNoNumbersAvailable
	}
	return c, nil
}

func (f *fakeDirectory) PurchaseNumber(ctx context.Context, phoneNumber string) (telephony.PurchaseResult, error) {
	f.mu.Lock()
	f.purchases = append(f.purchases, phoneNumber)
	fn := f.purchaseFn
	f.mu.Unlock()
	if fn != nil {
		return fn(phoneNumber)
	}
	return telephony.PurchaseResult{SID: "PN-" + phoneNumber, PhoneNumber: phoneNumber, FriendlyName: "friendly " + phoneNumber}, nil
}

func (f *fakeDirectory) ReleaseNumber(ctx context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released = append(f.released, sid)
	return nil
}

func (f *fakeDirectory) ListIncoming(ctx context.Context) ([]telephony.IncomingNumber, error) {
	return f.owned, nil
}

// fakeAgents links through the memory repo the way agents.Service does.
type fakeAgents struct {
	repo   *MemoryRepo
	agents map[string]bool
}

func (f *fakeAgents) AgentExists(ctx context.Context, agentID string) (bool, error) {
	return f.agents[agentID], nil
}

func (f *fakeAgents) AssignNumber(ctx context.Context, agentID, numberID string) error {
	_, err := f.repo.Link(ctx, nil, numberID, agentID)
	return err
}

func (f *fakeAgents) UnassignNumber(ctx context.Context, numberID string) error {
	_, err := f.repo.Unlink(ctx, nil, numberID)
	return err
}

type memLock struct {
	mu   sync.Mutex
	next int
	held map[string]string // key: owner token
}

func (l *memLock) TryLock(ctx context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.next++
	tok := fmt.Sprintf("tok-%d", l.next)
	l.held[key] = tok
	return tok, true, nil
}

func (l *memLock) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// steal simulates the lock lapsing and another holder taking key.
func (l *memLock) steal(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "other-holder"
}

func (l *memLock) owner(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

type fixture struct {
	dir      *fakeDirectory
	repo     *MemoryRepo
	audit    *audit.MemoryRepo
	listings *cache.MemoryStore
	lock     *memLock
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		dir: &fakeDirectory{candidates: map[string][]telephony.CandidateNumber{
			"415": {
				{PhoneNumber: "+14155550100", FriendlyName: "(415) 555-0100"},
				{PhoneNumber: "+14155550101", FriendlyName: "(415) 555-0101"},
			},
		}},
		repo:     NewMemoryRepo(),
		audit:    audit.NewMemoryRepo(),
		listings: cache.NewMemoryStore(),
		lock:     &memLock{held: map[string]string{}},
	}
	f.svc = NewService(Deps{
		Directory: f.dir,
		Repo:      f.repo,
		Listings:  f.listings,
		Audit:     audit.NewService(f.audit),
		Lock:      f.lock,
		Agents:    &fakeAgents{repo: f.repo, agents: map[string]bool{"agent-1": true}},
	})
	return f
}

func TestProvision_FirstCandidatePersistedActive(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if res.State != StateComplete {
		t.Fatalf("expected complete, got %s", res.State)
	}
	if len(f.dir.purchases) != 1 || f.dir.purchases[0] != "+14155550100" {
		t.Fatalf("expected first candidate purchased, got %v", f.dir.purchases)
	}

	rows, _ := f.repo.List(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.AreaCode != "415" || row.Status != StatusActive || row.CountryCode != CountryUS {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.TwilioSID != "PN-+14155550100" || row.AgentID != "" {
		t.Fatalf("unexpected row: %+v", row)
	}

	evs := f.audit.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeNumberPurchased {
		t.Fatalf("expected number_purchased audit event, got %+v", evs)
	}
}

func TestProvision_InvalidAreaCodeNoExternalCall(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "123"})
	if !errors.Is(err, telephony.ErrInvalidAreaCode) {
		t.Fatalf("expected ErrInvalidAreaCode, got %v", err)
	}
	if res.State != StateFailed || res.FailedStep != StateIdle {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.dir.searches != 0 || len(f.dir.purchases) != 0 {
		t.Fatalf("expected no provider calls")
	}
}

func TestProvision_NoNumbersAvailable(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "907"})
	if !errors.Is(err, telephony.ErrNoNumbersAvailable) {
		t.Fatalf("expected ErrNoNumbersAvailable, got %v", err)
	}
	if res.FailedStep != StateSearching {
		t.Fatalf("expected failure while searching, got %s", res.FailedStep)
	}
}

func TestProvision_NumberUnavailableIsSurfacedWithoutRetry(t *testing.T) {
	f := newFixture()
	f.dir.purchaseFn = func(string) (telephony.PurchaseResult, error) {
		return telephony.PurchaseResult{}, telephony.ErrNumberUnavailable
	}

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415"})
	if !errors.Is(err, telephony.ErrNumberUnavailable) {
		t.Fatalf("expected ErrNumberUnavailable, got %v", err)
	}
	if res.FailedStep != StatePurchasing {
		t.Fatalf("expected failure while purchasing, got %s", res.FailedStep)
	}
	if len(f.dir.purchases) != 1 || f.dir.searches != 1 {
		t.Fatalf("expected a single attempt, got %d searches and %d purchases", f.dir.searches, len(f.dir.purchases))
	}
	if rows, _ := f.repo.List(context.Background()); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if len(f.lock.held) != 0 {
		t.Fatalf("expected lock released")
	}
}

func TestProvision_PersistFailureIsCompensated(t *testing.T) {
	f := newFixture()
	f.repo.FailInsert = errors.New("connection reset")

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415"})
	if !errors.Is(err, ErrPersistAfterPurchase) {
		t.Fatalf("expected ErrPersistAfterPurchase, got %v", err)
	}
	if res.FailedStep != StatePersisting {
		t.Fatalf("expected failure while persisting, got %s", res.FailedStep)
	}

	evs := f.audit.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeUnrecordedPurchase || evs[0].TwilioSID != "PN-+14155550100" {
		t.Fatalf("expected unrecorded_purchase audit event, got %+v", evs)
	}
}

func TestProvision_SameSidPersistedOnce(t *testing.T) {
	f := newFixture()
	f.dir.purchaseFn = func(n string) (telephony.PurchaseResult, error) {
		return telephony.PurchaseResult{SID: "PN-fixed", PhoneNumber: "+14155550100"}, nil
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Provision(ctx, ProvisionRequest{AreaCode: "415"}); err != nil {
			t.Fatalf("provision %d: %v", i, err)
		}
	}
	rows, _ := f.repo.List(ctx)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row per sid, got %d", len(rows))
	}
}

func TestProvision_BusyLock(t *testing.T) {
	f := newFixture()
	f.lock.steal("provision:system")

	_, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415"})
	if !errors.Is(err, ErrProvisionBusy) {
		t.Fatalf("expected ErrProvisionBusy, got %v", err)
	}
	if len(f.dir.purchases) != 0 {
		t.Fatalf("expected no purchase while locked")
	}
}

func TestProvision_LapsedLockIsNotReleasedForNextHolder(t *testing.T) {
	f := newFixture()
	f.dir.purchaseFn = func(phoneNumber string) (telephony.PurchaseResult, error) {
		f.lock.steal("provision:system")
		return telephony.PurchaseResult{SID: "PN-" + phoneNumber, PhoneNumber: phoneNumber}, nil
	}

	if _, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if got := f.lock.owner("provision:system"); got != "other-holder" {
		t.Fatalf("expected the next holder to keep the lock, got %q", got)
	}
}

func TestProvision_ReleasesLock(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if got := f.lock.owner("provision:system"); got != "" {
		t.Fatalf("expected lock released, held by %q", got)
	}
}

func TestProvision_LinksAgent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Provision(ctx, ProvisionRequest{AreaCode: "415", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if res.PhoneNumber == nil || res.PhoneNumber.AgentID != "agent-1" {
		t.Fatalf("expected linked number, got %+v", res.PhoneNumber)
	}

	agentID, owned, err := f.svc.AssignedAgent(ctx, "+14155550100")
	if err != nil || !owned || agentID != "agent-1" {
		t.Fatalf("unexpected assignment: %q %v %v", agentID, owned, err)
	}
}

func TestProvision_UnknownAgentFailsBeforePurchase(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Provision(context.Background(), ProvisionRequest{AreaCode: "415", AgentID: "ghost"})
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if len(f.dir.purchases) != 0 {
		t.Fatalf("expected no purchase")
	}
}

func TestProvision_ChosenCandidate(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{PhoneNumber: "+14155550101"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if f.dir.searches != 0 {
		t.Fatalf("expected search skipped")
	}
	if res.PhoneNumber.AreaCode != "415" || res.PhoneNumber.PhoneNumber != "+14155550101" {
		t.Fatalf("unexpected row: %+v", res.PhoneNumber)
	}
}

func TestListAvailable_InvalidatedByProvision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	before, err := f.svc.ListAvailable(ctx)
	if err != nil || len(before) != 0 {
		t.Fatalf("expected empty list, got %v %v", before, err)
	}
	if _, err := f.svc.Provision(ctx, ProvisionRequest{AreaCode: "415"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	after, err := f.svc.ListAvailable(ctx)
	if err != nil || len(after) != 1 {
		t.Fatalf("expected fresh listing with 1 number, got %v %v", after, err)
	}
}

func TestRelease_UnlinksAndDeletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Provision(ctx, ProvisionRequest{AreaCode: "415", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	id := res.PhoneNumber.ID

	if err := f.svc.Release(ctx, id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(f.dir.released) != 1 || f.dir.released[0] != res.PhoneNumber.TwilioSID {
		t.Fatalf("expected provider release, got %v", f.dir.released)
	}
	if _, err := f.repo.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected row deleted, got %v", err)
	}
}

func TestRelease_ProviderFailureKeepsAgentLink(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Provision(ctx, ProvisionRequest{AreaCode: "415", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	id := res.PhoneNumber.ID

	f.dir.releaseErr = &telephony.ProviderError{Op: "release", Status: 500, Message: "boom"}
	if err := f.svc.Release(ctx, id); err == nil {
		t.Fatalf("expected provider error")
	}
	p, err := f.repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("expected row kept, got %v", err)
	}
	if p.AgentID != "agent-1" {
		t.Fatalf("expected agent link kept, got %q", p.AgentID)
	}
}

func TestAssign_MovesNumberBetweenAgents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.agents.(*fakeAgents).agents["agent-2"] = true

	res, err := f.svc.Provision(ctx, ProvisionRequest{AreaCode: "415", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if _, err := f.svc.Assign(ctx, res.PhoneNumber.ID, "agent-2"); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	p, err := f.svc.Assign(ctx, res.PhoneNumber.ID, "")
	if err != nil || p.AgentID != "" {
		t.Fatalf("expected unassigned number, got %+v %v", p, err)
	}
	p, err = f.svc.Assign(ctx, res.PhoneNumber.ID, "agent-2")
	if err != nil || p.AgentID != "agent-2" {
		t.Fatalf("expected reassigned number, got %+v %v", p, err)
	}
}
