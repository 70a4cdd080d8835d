package routing

import (
	"context"
	"errors"

	"voice-agent-platform/internal/telephony"
)

// NewEngineAdapter exposes a RoutingEngine as the provider-facing
// telephony.InboundRouter.
func NewEngineAdapter(engine *RoutingEngine) telephony.InboundRouter {
	return engineAdapter{engine: engine}
}

type engineAdapter struct {
	engine *RoutingEngine
}

func (a engineAdapter) RouteInboundCall(ctx context.Context, req telephony.InboundCallRequest) (telephony.InboundCallResult, error) {
	if a.engine == nil {
		return telephony.InboundCallResult{}, errors.New("routing: engine is nil")
	}

	d, err := a.engine.Route(ctx, req.To)
	if err != nil {
		return telephony.InboundCallResult{}, err
	}

	res := telephony.InboundCallResult{AgentID: d.AgentID, Reason: d.Reason}
	switch d.Action {
	case ActionReject:
		res.Action = telephony.InboundCallActionReject
	case ActionHangup:
		res.Action = telephony.InboundCallActionHangup
	case ActionConnect:
		res.Action = telephony.InboundCallActionConnect
		res.ConnectTo = d.ConnectTo
	default:
		return telephony.InboundCallResult{}, errors.New("routing: unknown decision action")
	}
	return res, nil
}
