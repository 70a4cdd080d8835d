package numbers

import (
	"errors"
	"time"
)

const (
	StatusActive = "active"

	CountryUS = "US"
)

var (
	ErrNotFound             = errors.New("numbers: phone number not found")
	ErrAlreadyAssigned      = errors.New("numbers: phone number is assigned to another agent")
	ErrProvisionBusy        = errors.New("numbers: a provisioning request is already running for this user")
	ErrPersistAfterPurchase = errors.New("numbers: number purchased but could not be recorded")
)

// PhoneNumber is an owned number. An empty AgentID means available.
// TwilioSID is unique and never changes after purchase.
type PhoneNumber struct {
	ID           string    `json:"id" db:"id"`
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	FriendlyName string    `json:"friendly_name" db:"friendly_name"`
	CountryCode  string    `json:"country_code" db:"country_code"`
	AreaCode     string    `json:"area_code" db:"area_code"`
	TwilioSID    string    `json:"twilio_sid" db:"twilio_sid"`
	Status       string    `json:"status" db:"status"`
	AgentID      string    `json:"agent_id,omitempty" db:"agent_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (p PhoneNumber) Available() bool {
	return p.AgentID == "" && p.Status == StatusActive
}
