package agents

import (
	"context"
	"errors"
	"strings"
	"time"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/numbers"
	"voice-agent-platform/pkg/logger"
	"voice-agent-platform/pkg/utils"

	"github.com/google/uuid"
)

const listingTTL = 60 * time.Second

// VoiceLookup resolves the language of a catalog voice.
type VoiceLookup interface {
	VoiceLanguage(ctx context.Context, voiceID string) (language string, found bool, err error)
}

type Deps struct {
	Repo     Repository
	Numbers  numbers.Repository
	Tx       utils.TxRunner
	Voices   VoiceLookup
	Listings cache.Store
	Audit    *audit.Service
}

type Service struct {
	repo     Repository
	numbers  numbers.Repository
	tx       utils.TxRunner
	voices   VoiceLookup
	listings cache.Store
	audit    *audit.Service
	clock    func() time.Time
}

func NewService(d Deps) *Service {
	tx := d.Tx
	if tx == nil {
		tx = utils.NoTx{}
	}
	return &Service{
		repo:     d.Repo,
		numbers:  d.Numbers,
		tx:       tx,
		voices:   d.Voices,
		listings: d.Listings,
		audit:    d.Audit,
		clock:    time.Now,
	}
}

type CreateInput struct {
	Name          string         `json:"name"`
	Prompt        string         `json:"prompt"`
	VoiceID       string         `json:"voice_id"`
	Language      string         `json:"language"`
	PhoneNumberID string         `json:"phone_number_id"`
	Settings      *SettingsInput `json:"settings"`
}

// UpdateInput changes only the non-nil fields. PhoneNumberID "" unassigns.
type UpdateInput struct {
	Name          *string        `json:"name"`
	Prompt        *string        `json:"prompt"`
	VoiceID       *string        `json:"voice_id"`
	Language      *string        `json:"language"`
	PhoneNumberID *string        `json:"phone_number_id"`
	Settings      *SettingsInput `json:"settings"`
}

// Create inserts an inactive agent and, when a number is chosen, links it in
// the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Agent, error) {
	a := Agent{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(in.Name),
		Prompt:   strings.TrimSpace(in.Prompt),
		VoiceID:  strings.TrimSpace(in.VoiceID),
		Language: strings.TrimSpace(in.Language),
		Status:   StatusInactive,
		Settings: in.Settings.Apply(DefaultSettings()).Normalize(),
	}
	if a.Language == "" {
		a.Language = DefaultLanguage
	}
	if uid, err := auth.UserID(ctx); err == nil {
		a.CreatedBy = uid
	}
	a.CreatedAt = s.clock().UTC()
	a.UpdatedAt = a.CreatedAt

	if err := s.validate(ctx, a); err != nil {
		return Agent{}, err
	}

	numberID := strings.TrimSpace(in.PhoneNumberID)
	if numberID != "" {
		p, err := s.numbers.Get(ctx, numberID)
		if err != nil {
			return Agent{}, err
		}
		if !p.Available() {
			return Agent{}, numbers.ErrAlreadyAssigned
		}
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, q utils.Querier) error {
		if err := s.repo.Insert(ctx, q, a); err != nil {
			return err
		}
		if numberID == "" {
			return nil
		}
		p, err := s.numbers.Link(ctx, q, numberID, a.ID)
		if err != nil {
			return err
		}
		a.PhoneNumber = p.PhoneNumber
		return s.repo.SetPhoneNumber(ctx, q, a.ID, p.PhoneNumber)
	})
	if err != nil {
		return Agent{}, err
	}

	if numberID != "" {
		s.auditAssigned(ctx, numberID, a.ID)
	}
	s.invalidate(ctx)
	logger.From(ctx).Info("agent created", "agent_id", a.ID, "phone_number", a.PhoneNumber)
	return a, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Agent, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Agent{}, err
	}
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Prompt != nil {
		a.Prompt = strings.TrimSpace(*in.Prompt)
	}
	if in.Language != nil {
		a.Language = strings.TrimSpace(*in.Language)
	}
	if in.VoiceID != nil {
		a.VoiceID = strings.TrimSpace(*in.VoiceID)
	} else if in.Language != nil && a.VoiceID != "" {
		// A language change drops a voice that does not speak it.
		v, err := s.ResolveVoice(ctx, a.VoiceID, a.Language)
		if err != nil {
			return Agent{}, err
		}
		a.VoiceID = v
	}
	a.Settings = in.Settings.Apply(a.Settings).Normalize()

	if err := s.validate(ctx, a); err != nil {
		return Agent{}, err
	}
	if err := s.repo.Update(ctx, nil, a); err != nil {
		return Agent{}, err
	}

	if in.PhoneNumberID != nil {
		numberID := strings.TrimSpace(*in.PhoneNumberID)
		if numberID == "" {
			if err := s.clearAgentNumbers(ctx, a.ID); err != nil {
				return Agent{}, err
			}
		} else if err := s.AssignNumber(ctx, a.ID, numberID); err != nil {
			return Agent{}, err
		}
	}

	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// SetStatus activates or deactivates an agent.
func (s *Service) SetStatus(ctx context.Context, id, status string) (Agent, error) {
	if status != StatusActive && status != StatusInactive {
		v := &ValidationError{}
		v.add("status", "must be active or inactive")
		return Agent{}, v
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Agent{}, err
	}
	a.Status = status
	if err := s.repo.Update(ctx, nil, a); err != nil {
		return Agent{}, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (Agent, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Agent, error) {
	return cache.GetOrLoad(ctx, s.listings, cache.KeyAgents, listingTTL, s.repo.List)
}

// Delete removes the agent and frees its numbers.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.tx.InTx(ctx, func(ctx context.Context, q utils.Querier) error {
		if err := s.numbers.ClearAgent(ctx, q, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, q, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	logger.From(ctx).Info("agent deleted", "agent_id", id)
	return nil
}

// ResolveVoice returns voiceID when that voice speaks language, otherwise "".
func (s *Service) ResolveVoice(ctx context.Context, voiceID, language string) (string, error) {
	if voiceID == "" || s.voices == nil {
		return "", nil
	}
	lang, found, err := s.voices.VoiceLanguage(ctx, voiceID)
	if err != nil {
		return "", err
	}
	if !found || lang != language {
		return "", nil
	}
	return voiceID, nil
}

// AssignNumber links numberID to agentID and mirrors the number on the agent.
// Any number previously linked to the agent is freed.
func (s *Service) AssignNumber(ctx context.Context, agentID, numberID string) error {
	err := s.tx.InTx(ctx, func(ctx context.Context, q utils.Querier) error {
		if _, err := s.repo.Get(ctx, agentID); err != nil {
			return err
		}
		p, err := s.numbers.Link(ctx, q, numberID, agentID)
		if err != nil {
			return err
		}
		return s.repo.SetPhoneNumber(ctx, q, agentID, p.PhoneNumber)
	})
	if err != nil {
		return err
	}
	s.auditAssigned(ctx, numberID, agentID)
	s.invalidate(ctx)
	return nil
}

// UnassignNumber frees numberID and clears the mirror on its former agent.
func (s *Service) UnassignNumber(ctx context.Context, numberID string) error {
	err := s.tx.InTx(ctx, func(ctx context.Context, q utils.Querier) error {
		prev, err := s.numbers.Unlink(ctx, q, numberID)
		if err != nil {
			return err
		}
		if prev == "" {
			return nil
		}
		err = s.repo.SetPhoneNumber(ctx, q, prev, "")
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	s.auditAssigned(ctx, numberID, "")
	s.invalidate(ctx)
	return nil
}

func (s *Service) clearAgentNumbers(ctx context.Context, agentID string) error {
	return s.tx.InTx(ctx, func(ctx context.Context, q utils.Querier) error {
		if err := s.numbers.ClearAgent(ctx, q, agentID); err != nil {
			return err
		}
		return s.repo.SetPhoneNumber(ctx, q, agentID, "")
	})
}

// AgentExists is used by provisioning to fail before buying a number.
func (s *Service) AgentExists(ctx context.Context, agentID string) (bool, error) {
	_, err := s.repo.Get(ctx, agentID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// AgentStatus is used by inbound call routing.
func (s *Service) AgentStatus(ctx context.Context, agentID string) (string, bool, error) {
	a, err := s.repo.Get(ctx, agentID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Status, true, nil
}

func (s *Service) validate(ctx context.Context, a Agent) error {
	v := &ValidationError{}
	if a.Name == "" {
		v.add("name", "is required")
	}
	if a.Prompt == "" {
		v.add("prompt", "is required")
	}
	if !SupportedLanguage(a.Language) {
		v.add("language", "must be one of en, es, fr, de")
	}
	a.Settings.validate(v)
	if err := v.orNil(); err != nil {
		return err
	}

	if a.VoiceID == "" || s.voices == nil {
		return nil
	}
	lang, found, err := s.voices.VoiceLanguage(ctx, a.VoiceID)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownVoice
	}
	if lang != a.Language {
		return ErrVoiceLanguageMismatch
	}
	return nil
}

func (s *Service) auditAssigned(ctx context.Context, numberID, agentID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogNumberAssigned(ctx, numberID, agentID); err != nil {
		logger.From(ctx).Warn("audit number assigned failed", "err", err)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := cache.Invalidate(ctx, s.listings); err != nil {
		logger.From(ctx).Warn("listing cache invalidation failed", "err", err)
	}
}
