package subscriptions

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) FindActivePlan(ctx context.Context, userID string) (Plan, bool, error) {
	const q = `
SELECT p.id::text, p.tier, p.phone_number_fee_minor, p.created_at, p.updated_at
FROM user_subscriptions s
JOIN subscription_plans p ON p.id = s.plan_id
WHERE s.user_id = $1 AND s.status = 'active'
ORDER BY s.created_at DESC
LIMIT 1
`
	var (
		p    Plan
		tier string
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&p.ID, &tier, &p.PhoneNumberFeeMinor, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, false, nil
	}
	if err != nil {
		return Plan{}, false, err
	}
	p.Tier = Tier(tier)
	return p, true, nil
}

// MemoryRepo is an in-memory repository for tests and local runs.
type MemoryRepo struct {
	Plans         []Plan
	Subscriptions []UserSubscription
}

func (r *MemoryRepo) FindActivePlan(ctx context.Context, userID string) (Plan, bool, error) {
	var (
		best  UserSubscription
		found bool
	)
	for _, s := range r.Subscriptions {
		if s.UserID != userID || s.Status != StatusActive {
			continue
		}
		if !found || s.CreatedAt.After(best.CreatedAt) {
			best = s
			found = true
		}
	}
	if !found {
		return Plan{}, false, nil
	}
	for _, p := range r.Plans {
		if p.ID == best.PlanID {
			return p, true, nil
		}
	}
	return Plan{}, false, nil
}
