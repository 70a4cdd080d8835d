package agents

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	ErrNotFound              = errors.New("agents: agent not found")
	ErrValidation            = errors.New("agents: validation failed")
	ErrUnknownVoice          = errors.New("agents: voice not found")
	ErrVoiceLanguageMismatch = errors.New("agents: voice language does not match agent language")
)

// Agent is a configured voice persona.
// PhoneNumber mirrors the phone_numbers row whose agent_id points here; that
// row is the source of truth.
type Agent struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Prompt      string    `json:"prompt" db:"prompt"`
	VoiceID     string    `json:"voice_id,omitempty" db:"voice_id"`
	PhoneNumber string    `json:"phone_number,omitempty" db:"phone_number"`
	Language    string    `json:"language" db:"language"`
	Status      string    `json:"status" db:"status"`
	Settings    Settings  `json:"settings" db:"settings"`
	CreatedBy   string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FieldError is a single invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "agents: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
