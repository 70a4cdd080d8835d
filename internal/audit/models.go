package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
//
// Storage: table audit_events, INSERT only.
type Event struct {
	ID string `json:"id" db:"id"`

	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event, empty for
	// webhooks and voicectl runs.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	PhoneNumberID string `json:"phone_number_id,omitempty" db:"phone_number_id"`
	TwilioSID     string `json:"twilio_sid,omitempty" db:"twilio_sid"`
	AgentID       string `json:"agent_id,omitempty" db:"agent_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeNumberPurchased    EventType = "number_purchased"
	EventTypeUnrecordedPurchase EventType = "unrecorded_purchase"
	EventTypeNumberAssigned     EventType = "number_assigned"
	EventTypeNumberReleased     EventType = "number_released"
	EventTypeVoiceSync          EventType = "voice_sync"
	EventTypeAdminMaintenance   EventType = "admin_maintenance"
)
