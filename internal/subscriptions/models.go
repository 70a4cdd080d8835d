package subscriptions

import "time"

// Amounts are in minor units (cents).

type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Plan is a subscription tier and the monthly fee it charges per owned number.
type Plan struct {
	ID                  string    `json:"id" db:"id"`
	Tier                Tier      `json:"tier" db:"tier"`
	PhoneNumberFeeMinor int64     `json:"phone_number_fee_minor" db:"phone_number_fee_minor"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
)

type UserSubscription struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	PlanID    string    `json:"plan_id" db:"plan_id"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NumberFee is the caller-facing monthly phone number fee.
type NumberFee struct {
	Tier     Tier   `json:"tier"`
	FeeMinor int64  `json:"fee_minor"`
	Display  string `json:"display"`
}
