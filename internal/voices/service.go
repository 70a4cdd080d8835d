package voices

import (
	"context"
	"errors"
	"strings"
)

// Service is the read side of the voice catalog.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// List returns voices, optionally only those speaking language.
func (s *Service) List(ctx context.Context, language string) ([]Voice, error) {
	return s.repo.List(ctx, NormalizeLanguage(language))
}

func (s *Service) Get(ctx context.Context, id string) (Voice, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// VoiceLanguage reports the language of voiceID for agent validation.
// A voice without a recorded language is treated as English.
func (s *Service) VoiceLanguage(ctx context.Context, voiceID string) (string, bool, error) {
	v, err := s.repo.Get(ctx, voiceID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if v.Language == "" {
		return "en", true, nil
	}
	return v.Language, true, nil
}
