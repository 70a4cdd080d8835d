package routing

import (
	"context"
	"testing"

	"voice-agent-platform/internal/telephony"
)

type stubNumbers map[string]string

func (s stubNumbers) AssignedAgent(ctx context.Context, phoneNumber string) (string, bool, error) {
	agentID, ok := s[phoneNumber]
	return agentID, ok, nil
}

type stubAgents map[string]string

func (s stubAgents) AgentStatus(ctx context.Context, agentID string) (string, bool, error) {
	st, ok := s[agentID]
	return st, ok, nil
}

func newEngine() *RoutingEngine {
	return NewRoutingEngine(
		stubNumbers{
			"+14155550100": "a-active",
			"+14155550101": "a-inactive",
			"+14155550102": "",
			"+14155550103": "a-deleted",
		},
		stubAgents{"a-active": "active", "a-inactive": "inactive"},
		"sip.example.test",
	)
}

func TestRoutingEngine_Decisions(t *testing.T) {
	e := newEngine()
	cases := []struct {
		to     string
		action Action
		reason string
	}{
		{"+14155550100", ActionConnect, ReasonConnected},
		{"+14155550101", ActionReject, ReasonAgentInactive},
		{"+14155550102", ActionReject, ReasonUnassignedNumber},
		{"+14155550103", ActionReject, ReasonAgentMissing},
		{"+19995550000", ActionReject, ReasonUnknownNumber},
		{"", ActionReject, ReasonUnknownNumber},
	}
	for _, tc := range cases {
		d, err := e.Route(context.Background(), tc.to)
		if err != nil {
			t.Fatalf("%q: %v", tc.to, err)
		}
		if d.Action != tc.action || d.Reason != tc.reason {
			t.Fatalf("%q: expected %s/%s, got %s/%s", tc.to, tc.action, tc.reason, d.Action, d.Reason)
		}
	}
}

func TestEngineAdapter_ConnectsToAgentSip(t *testing.T) {
	a := NewEngineAdapter(newEngine())
	res, err := a.RouteInboundCall(context.Background(), telephony.InboundCallRequest{ProviderCallID: "CA1", To: "+14155550100"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if res.Action != telephony.InboundCallActionConnect || res.ConnectTo != "sip:a-active@sip.example.test" || res.AgentID != "a-active" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
