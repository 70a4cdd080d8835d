package telephony

import (
	"strings"
	"testing"
)

func TestRenderTwiMLReject(t *testing.T) {
	xml, err := RenderTwiML(InboundCallResult{Action: InboundCallActionReject})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Reject") {
		t.Fatalf("expected <Reject in xml: %s", xml)
	}
}

func TestRenderTwiMLDialsSip(t *testing.T) {
	xml, err := RenderTwiML(InboundCallResult{Action: InboundCallActionConnect, ConnectTo: "sip:agent-1@sip.example.test"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Sip>sip:agent-1@sip.example.test</Sip>") {
		t.Fatalf("expected sip dial in xml: %s", xml)
	}
}

func TestRenderTwiMLConnectRequiresTarget(t *testing.T) {
	_, err := RenderTwiML(InboundCallResult{Action: InboundCallActionConnect})
	if err == nil {
		t.Fatalf("expected error")
	}
}
