package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NumberAssignments resolves which agent a dialed number is assigned to.
// owned is false for numbers this account does not hold; agentID is empty
// for owned but unassigned numbers.
type NumberAssignments interface {
	AssignedAgent(ctx context.Context, phoneNumber string) (agentID string, owned bool, err error)
}

// AgentStatuses resolves the current status of an agent.
type AgentStatuses interface {
	AgentStatus(ctx context.Context, agentID string) (status string, found bool, err error)
}

// RoutingEngine maps a dialed number to the agent that answers it.
//
// Priority:
//  1. Number must be owned and assigned to an agent
//  2. Agent must exist and be active
//  3. Connect to the agent's SIP endpoint
//
// Route has no side effects.
type RoutingEngine struct {
	Numbers   NumberAssignments
	Agents    AgentStatuses
	SIPDomain string
}

func NewRoutingEngine(numbers NumberAssignments, agents AgentStatuses, sipDomain string) *RoutingEngine {
	return &RoutingEngine{Numbers: numbers, Agents: agents, SIPDomain: sipDomain}
}

func (e *RoutingEngine) Route(ctx context.Context, dialed string) (Decision, error) {
	if e.Numbers == nil || e.Agents == nil {
		return Decision{}, errors.New("routing: lookups not configured")
	}
	dialed = strings.TrimSpace(dialed)
	if dialed == "" {
		return Decision{Action: ActionReject, Reason: ReasonUnknownNumber}, nil
	}

	agentID, owned, err := e.Numbers.AssignedAgent(ctx, dialed)
	if err != nil {
		return Decision{}, err
	}
	if !owned {
		return Decision{Action: ActionReject, Reason: ReasonUnknownNumber}, nil
	}
	if agentID == "" {
		return Decision{Action: ActionReject, Reason: ReasonUnassignedNumber}, nil
	}

	status, found, err := e.Agents.AgentStatus(ctx, agentID)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{Action: ActionReject, AgentID: agentID, Reason: ReasonAgentMissing}, nil
	}
	if status != "active" {
		return Decision{Action: ActionReject, AgentID: agentID, Reason: ReasonAgentInactive}, nil
	}
	if e.SIPDomain == "" {
		return Decision{}, errors.New("routing: sip domain not configured")
	}

	return Decision{
		Action:    ActionConnect,
		ConnectTo: fmt.Sprintf("sip:%s@%s", agentID, e.SIPDomain),
		AgentID:   agentID,
		Reason:    ReasonConnected,
	}, nil
}
