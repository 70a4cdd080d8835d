package routing

// Decision is the provider-agnostic output of the routing engine.
// It carries only what the provider adapter needs to execute it.
type Decision struct {
	Action    Action `json:"action"`
	ConnectTo string `json:"connect_to,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`

	// Reason is for logs and metrics only.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	ActionReject  Action = "reject"
	ActionConnect Action = "connect"
	ActionHangup  Action = "hangup"
)

const (
	ReasonUnknownNumber    = "unknown_number"
	ReasonUnassignedNumber = "unassigned_number"
	ReasonAgentMissing     = "agent_missing"
	ReasonAgentInactive    = "agent_inactive"
	ReasonConnected        = "connected"
)
