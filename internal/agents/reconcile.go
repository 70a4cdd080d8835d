package agents

import (
	"context"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/internal/numbers"
	"voice-agent-platform/pkg/logger"
)

// Reconciler rewrites each agent's phone number from the phone_numbers link.
type Reconciler struct {
	Agents   Repository
	Numbers  numbers.Repository
	Listings cache.Store
	Audit    *audit.Service
}

type LinkReport struct {
	Checked  int      `json:"checked"`
	Repaired []string `json:"repaired"`
	// Dangling lists numbers linked to an agent that no longer exists.
	Dangling []string `json:"dangling"`
}

func (r Reconciler) Sweep(ctx context.Context) (LinkReport, error) {
	log := logger.From(ctx)
	rep := LinkReport{Repaired: []string{}, Dangling: []string{}}

	list, err := r.Agents.List(ctx)
	if err != nil {
		return rep, err
	}
	nums, err := r.Numbers.List(ctx)
	if err != nil {
		return rep, err
	}

	byAgent := make(map[string]string, len(nums))
	for _, p := range nums {
		if p.AgentID != "" {
			byAgent[p.AgentID] = p.PhoneNumber
		}
	}
	known := make(map[string]struct{}, len(list))
	for _, a := range list {
		rep.Checked++
		known[a.ID] = struct{}{}
		want := byAgent[a.ID]
		if a.PhoneNumber == want {
			continue
		}
		if err := r.Agents.SetPhoneNumber(ctx, nil, a.ID, want); err != nil {
			return rep, err
		}
		rep.Repaired = append(rep.Repaired, a.ID)
		log.Info("agent phone number repaired", "agent_id", a.ID, "was", a.PhoneNumber, "now", want)
	}
	for _, p := range nums {
		if p.AgentID == "" {
			continue
		}
		if _, ok := known[p.AgentID]; !ok {
			rep.Dangling = append(rep.Dangling, p.ID)
		}
	}

	if len(rep.Repaired) > 0 {
		if err := cache.Invalidate(ctx, r.Listings); err != nil {
			log.Warn("listing cache invalidation failed", "err", err)
		}
	}
	metrics.RecordRepairs("agent_links", len(rep.Repaired))
	if r.Audit != nil {
		if err := r.Audit.LogAdminMaintenance(ctx, "reconcile_agent_links", rep); err != nil {
			log.Warn("audit reconcile failed", "err", err)
		}
	}
	return rep, nil
}
