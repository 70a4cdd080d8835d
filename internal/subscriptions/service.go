package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"voice-agent-platform/internal/auth"
)

var ErrNoSubscription = errors.New("subscriptions: no active subscription")

// Repository resolves the plan behind a user's active subscription.
type Repository interface {
	FindActivePlan(ctx context.Context, userID string) (Plan, bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// NumberFee returns the monthly phone number fee for the calling user's plan.
func (s *Service) NumberFee(ctx context.Context) (NumberFee, error) {
	uid, err := auth.UserID(ctx)
	if err != nil {
		return NumberFee{}, err
	}
	p, ok, err := s.repo.FindActivePlan(ctx, uid)
	if err != nil {
		return NumberFee{}, err
	}
	if !ok {
		return NumberFee{}, ErrNoSubscription
	}
	return NumberFee{Tier: p.Tier, FeeMinor: p.PhoneNumberFeeMinor, Display: FormatMonthlyFee(p.PhoneNumberFeeMinor)}, nil
}

// FormatMonthlyFee renders cents as "$x.xx/month".
func FormatMonthlyFee(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d/month", sign, minor/100, minor%100)
}
