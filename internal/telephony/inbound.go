package telephony

import (
	"context"
	"time"
)

// InboundCallRequest is an inbound call event received from the provider.
type InboundCallRequest struct {
	// ProviderCallID is the provider's unique identifier for this call.
	ProviderCallID string `json:"provider_call_id"`

	// From and To are E.164 where possible.
	From string `json:"from"`
	To   string `json:"to"`

	OccurredAt time.Time `json:"occurred_at"`
}

// InboundCallResult describes what the provider should do with the call.
type InboundCallResult struct {
	Action InboundCallAction `json:"action"`

	// ConnectTo is used when Action == "connect".
	ConnectTo string `json:"connect_to,omitempty"`

	// AgentID is the agent the dialed number belongs to, if any.
	AgentID string `json:"agent_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type InboundCallAction string

const (
	InboundCallActionReject  InboundCallAction = "reject"
	InboundCallActionConnect InboundCallAction = "connect"
	InboundCallActionHangup  InboundCallAction = "hangup"
)

// InboundRouter decides what happens to an inbound call.
type InboundRouter interface {
	RouteInboundCall(ctx context.Context, req InboundCallRequest) (InboundCallResult, error)
}

// CallEvent is a call lifecycle update from the provider.
type CallEvent struct {
	ProviderCallID  string
	AgentID         string
	From            string
	To              string
	Status          string
	DurationSeconds int
	OccurredAt      time.Time
}

// CallEventRecorder persists call lifecycle updates.
type CallEventRecorder interface {
	RecordCallEvent(ctx context.Context, ev CallEvent) error
}
