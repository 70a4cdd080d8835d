package numbers

import (
	"context"
	"errors"
	"time"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/internal/telephony"
	"voice-agent-platform/pkg/logger"

	"github.com/google/uuid"
)

// Reconciler repairs numbers owned at the provider but missing locally,
// the gap left when a row write fails after a purchase.
type Reconciler struct {
	Directory telephony.Directory
	Repo      Repository
	Listings  cache.Store
	Audit     *audit.Service
}

type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Inserted []string `json:"inserted"`
	// Missing lists local rows whose sid the provider no longer reports.
	// They are left for an operator to review.
	Missing []string `json:"missing"`
}

func (r Reconciler) Sweep(ctx context.Context) (ReconcileReport, error) {
	log := logger.From(ctx)
	rep := ReconcileReport{Inserted: []string{}, Missing: []string{}}

	owned, err := r.Directory.ListIncoming(ctx)
	if err != nil {
		return rep, err
	}
	seen := make(map[string]struct{}, len(owned))

	for _, n := range owned {
		rep.Checked++
		seen[n.SID] = struct{}{}

		_, err := r.Repo.GetBySID(ctx, n.SID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return rep, err
		}

		row, inserted, err := r.Repo.Insert(ctx, PhoneNumber{
			ID:           uuid.NewString(),
			PhoneNumber:  n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			CountryCode:  CountryUS,
			AreaCode:     telephony.AreaCodeOf(n.PhoneNumber),
			TwilioSID:    n.SID,
			Status:       StatusActive,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return rep, err
		}
		if inserted {
			rep.Inserted = append(rep.Inserted, n.SID)
			log.Info("recorded unrecorded number", "sid", n.SID, "phone_number_id", row.ID)
		}
	}

	local, err := r.Repo.List(ctx)
	if err != nil {
		return rep, err
	}
	for _, p := range local {
		if _, ok := seen[p.TwilioSID]; !ok {
			rep.Missing = append(rep.Missing, p.TwilioSID)
		}
	}

	if len(rep.Inserted) > 0 {
		if err := cache.Invalidate(ctx, r.Listings); err != nil {
			log.Warn("listing cache invalidation failed", "err", err)
		}
	}
	metrics.RecordRepairs("numbers", len(rep.Inserted))
	if r.Audit != nil {
		if err := r.Audit.LogAdminMaintenance(ctx, "reconcile_numbers", rep); err != nil {
			log.Warn("audit reconcile failed", "err", err)
		}
	}
	log.Info("number reconciliation finished", "checked", rep.Checked, "inserted", len(rep.Inserted), "missing", len(rep.Missing))
	return rep, nil
}
