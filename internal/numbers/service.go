package numbers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/internal/telephony"
	"voice-agent-platform/pkg/logger"

	"github.com/google/uuid"
)

const listingTTL = 60 * time.Second

var ErrUnknownAgent = errors.New("numbers: agent not found")

// State is a step of the provisioning workflow.
// idle -> searching -> purchasing -> persisting -> [linking] -> complete,
// and failed from any step.
type State string

const (
	StateIdle       State = "idle"
	StateSearching  State = "searching"
	StatePurchasing State = "purchasing"
	StatePersisting State = "persisting"
	StateLinking    State = "linking"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Locker serializes provisioning per user. utils.RedisLock satisfies it.
// Unlock must be a no-op unless token still owns key.
type Locker interface {
	TryLock(ctx context.Context, key string) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// AgentAssigner owns the agent side of a number link.
type AgentAssigner interface {
	AgentExists(ctx context.Context, agentID string) (bool, error)
	AssignNumber(ctx context.Context, agentID, numberID string) error
	UnassignNumber(ctx context.Context, numberID string) error
}

// Compensator is called when a number was bought at the provider but its
// row could not be written.
type Compensator interface {
	PurchaseNotRecorded(ctx context.Context, purchase telephony.PurchaseResult, cause error)
}

// AuditCompensator records the orphaned purchase so reconciliation and
// operators can find it.
type AuditCompensator struct {
	Audit *audit.Service
}

func (a AuditCompensator) PurchaseNotRecorded(ctx context.Context, purchase telephony.PurchaseResult, cause error) {
	log := logger.From(ctx)
	log.Error("purchased number not recorded", "sid", purchase.SID, "phone_number", purchase.PhoneNumber, "err", cause)
	if a.Audit == nil {
		return
	}
	if err := a.Audit.LogUnrecordedPurchase(ctx, purchase.SID, purchase.PhoneNumber, cause); err != nil {
		log.Error("audit unrecorded purchase failed", "sid", purchase.SID, "err", err)
	}
}

type Deps struct {
	Directory telephony.Directory
	Repo      Repository
	Listings  cache.Store
	Audit     *audit.Service

	// Compensator defaults to AuditCompensator{Audit}.
	Compensator Compensator
	// Lock is optional; nil disables per-user serialization.
	Lock Locker
	// Agents is required for linking, assignment and release of assigned numbers.
	Agents AgentAssigner
}

type Service struct {
	dir         telephony.Directory
	repo        Repository
	listings    cache.Store
	audit       *audit.Service
	compensator Compensator
	lock        Locker
	agents      AgentAssigner
}

func NewService(d Deps) *Service {
	comp := d.Compensator
	if comp == nil {
		comp = AuditCompensator{Audit: d.Audit}
	}
	return &Service{
		dir:         d.Directory,
		repo:        d.Repo,
		listings:    d.Listings,
		audit:       d.Audit,
		compensator: comp,
		lock:        d.Lock,
		agents:      d.Agents,
	}
}

type ProvisionRequest struct {
	AreaCode string `json:"area_code"`
	// PhoneNumber skips the search and buys this candidate.
	PhoneNumber string `json:"phone_number,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
}

type ProvisionResult struct {
	State       State                      `json:"state"`
	FailedStep  State                      `json:"failed_step,omitempty"`
	Candidate   *telephony.CandidateNumber `json:"candidate,omitempty"`
	PhoneNumber *PhoneNumber               `json:"phone_number,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// Search returns purchasable candidates for areaCode in provider order.
func (s *Service) Search(ctx context.Context, areaCode string) ([]telephony.CandidateNumber, error) {
	return s.dir.SearchNumbers(ctx, strings.TrimSpace(areaCode))
}

// Provision turns an area code (or a chosen candidate) into an owned,
// recorded number, optionally linked to an agent.
//
// Each call is a single attempt. ErrNumberUnavailable is returned to the
// caller as retry-eligible; the workflow never re-searches on its own.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	log := logger.From(ctx)
	res := ProvisionResult{State: StateIdle}

	fail := func(err error) (ProvisionResult, error) {
		res.FailedStep = res.State
		res.State = StateFailed
		res.Error = err.Error()
		metrics.RecordProvisioning(string(StateFailed), string(res.FailedStep))
		log.Warn("provisioning failed", "step", res.FailedStep, "area_code", req.AreaCode, "err", err)
		return res, err
	}

	req.AreaCode = strings.TrimSpace(req.AreaCode)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber != "" {
		if err := telephony.ValidatePhoneNumber(req.PhoneNumber); err != nil {
			return fail(err)
		}
		if req.AreaCode == "" {
			req.AreaCode = telephony.AreaCodeOf(req.PhoneNumber)
		}
	} else if err := telephony.ValidateAreaCode(req.AreaCode); err != nil {
		return fail(err)
	}

	if req.AgentID != "" {
		if s.agents == nil {
			return fail(errors.New("numbers: agent linking not configured"))
		}
		ok, err := s.agents.AgentExists(ctx, req.AgentID)
		if err != nil {
			return fail(err)
		}
		if !ok {
			return fail(ErrUnknownAgent)
		}
	}

	unlock, err := s.acquire(ctx)
	if err != nil {
		return fail(err)
	}
	defer unlock()

	target := telephony.CandidateNumber{PhoneNumber: req.PhoneNumber}
	if req.PhoneNumber == "" {
		res.State = StateSearching
		candidates, err := s.dir.SearchNumbers(ctx, req.AreaCode)
		if err != nil {
			return fail(err)
		}
		target = candidates[0]
	}
	res.Candidate = &target

	res.State = StatePurchasing
	purchase, err := s.dir.PurchaseNumber(ctx, target.PhoneNumber)
	if err != nil {
		return fail(err)
	}

	res.State = StatePersisting
	row, err := s.persist(ctx, purchase, target, req.AreaCode)
	if err != nil {
		return fail(err)
	}
	res.PhoneNumber = &row

	if req.AgentID != "" {
		res.State = StateLinking
		if err := s.agents.AssignNumber(ctx, req.AgentID, row.ID); err != nil {
			s.invalidate(ctx)
			return fail(err)
		}
		row.AgentID = req.AgentID
		res.PhoneNumber = &row
	}

	s.invalidate(ctx)
	res.State = StateComplete
	metrics.RecordProvisioning(string(StateComplete), "")
	log.Info("number provisioned", "phone_number_id", row.ID, "sid", row.TwilioSID, "agent_id", row.AgentID)
	return res, nil
}

func (s *Service) persist(ctx context.Context, purchase telephony.PurchaseResult, cand telephony.CandidateNumber, areaCode string) (PhoneNumber, error) {
	number := purchase.PhoneNumber
	if number == "" {
		number = cand.PhoneNumber
	}
	friendly := purchase.FriendlyName
	if friendly == "" {
		friendly = cand.FriendlyName
	}
	if ac := telephony.AreaCodeOf(number); ac != "" {
		areaCode = ac
	}

	row, inserted, err := s.repo.Insert(ctx, PhoneNumber{
		ID:           uuid.NewString(),
		PhoneNumber:  number,
		FriendlyName: friendly,
		CountryCode:  CountryUS,
		AreaCode:     areaCode,
		TwilioSID:    purchase.SID,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		s.compensator.PurchaseNotRecorded(ctx, purchase, err)
		return PhoneNumber{}, fmt.Errorf("%w: %w", ErrPersistAfterPurchase, err)
	}
	if inserted && s.audit != nil {
		if err := s.audit.LogNumberPurchased(ctx, row.ID, row.TwilioSID, row.PhoneNumber); err != nil {
			logger.From(ctx).Warn("audit number purchased failed", "err", err)
		}
	}
	return row, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	owner, err := auth.UserID(ctx)
	if err != nil {
		owner = "system"
	}
	key := "provision:" + owner
	token, ok, err := s.lock.TryLock(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProvisionBusy
	}
	return func() {
		// The request context may already be cancelled.
		if err := s.lock.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			logger.From(ctx).Warn("provision unlock failed", "key", key, "err", err)
		}
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (PhoneNumber, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]PhoneNumber, error) {
	return cache.GetOrLoad(ctx, s.listings, cache.KeyPhoneNumbers, listingTTL, s.repo.List)
}

// ListAvailable returns active numbers not linked to any agent.
func (s *Service) ListAvailable(ctx context.Context) ([]PhoneNumber, error) {
	return cache.GetOrLoad(ctx, s.listings, cache.KeyAvailableNumbers, listingTTL, s.repo.ListAvailable)
}

// Assign links the number to agentID, or unassigns it when agentID is empty.
func (s *Service) Assign(ctx context.Context, numberID, agentID string) (PhoneNumber, error) {
	if s.agents == nil {
		return PhoneNumber{}, errors.New("numbers: agent linking not configured")
	}
	if _, err := s.repo.Get(ctx, numberID); err != nil {
		return PhoneNumber{}, err
	}
	var err error
	if agentID == "" {
		err = s.agents.UnassignNumber(ctx, numberID)
	} else {
		err = s.agents.AssignNumber(ctx, agentID, numberID)
	}
	if err != nil {
		return PhoneNumber{}, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, numberID)
}

// Release gives the number back to the provider and deletes its row.
// An assigned number is unlinked from its agent first.
func (s *Service) Release(ctx context.Context, numberID string) error {
	p, err := s.repo.Get(ctx, numberID)
	if err != nil {
		return err
	}
	if p.AgentID != "" && s.agents == nil {
		return errors.New("numbers: agent linking not configured")
	}
	// A failed provider release leaves the number and its agent link intact.
	if err := s.dir.ReleaseNumber(ctx, p.TwilioSID); err != nil {
		return err
	}
	if p.AgentID != "" {
		if err := s.agents.UnassignNumber(ctx, numberID); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, numberID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if s.audit != nil {
		if err := s.audit.LogNumberReleased(ctx, p.ID, p.TwilioSID); err != nil {
			logger.From(ctx).Warn("audit number released failed", "err", err)
		}
	}
	s.invalidate(ctx)
	logger.From(ctx).Info("number released", "phone_number_id", p.ID, "sid", p.TwilioSID)
	return nil
}

// AssignedAgent reports the agent a dialed number routes to.
func (s *Service) AssignedAgent(ctx context.Context, phoneNumber string) (string, bool, error) {
	p, err := s.repo.GetByNumber(ctx, phoneNumber)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if p.Status != StatusActive {
		return "", false, nil
	}
	return p.AgentID, true, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := cache.Invalidate(ctx, s.listings); err != nil {
		logger.From(ctx).Warn("listing cache invalidation failed", "err", err)
	}
}
