package calls

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("calls: call not found")

// Call is one inbound call to an agent's number.
// ProviderCallID is unique so repeated provider callbacks update one row.
type Call struct {
	ID             string `json:"id" db:"id"`
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`
	AgentID        string `json:"agent_id,omitempty" db:"agent_id"`
	// AgentName is joined from agents on read.
	AgentName   string `json:"agent_name,omitempty" db:"-"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`
	From        string `json:"from,omitempty" db:"from_number"`

	Status CallStatus `json:"status" db:"status"`

	// Duration is in seconds; nil until the provider reports it.
	Duration *int `json:"duration" db:"duration"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no_answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// ParseStatus maps provider status strings ("in-progress", "no-answer") to CallStatus.
// Unknown values are kept as given.
func ParseStatus(s string) CallStatus {
	return CallStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
}

var terminalStatuses = []CallStatus{
	CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer, CallStatusBusy, CallStatusCanceled,
}

// Terminal reports whether no further status changes are expected.
func (s CallStatus) Terminal() bool {
	for _, t := range terminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// Page is one page of the recent calls listing.
type Page struct {
	Calls      []Call `json:"calls"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}
