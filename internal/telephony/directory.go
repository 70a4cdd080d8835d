package telephony

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Directory is the provider-agnostic view of number inventory used by the
// provisioning workflow.
//
// Rules:
// - No provider SDK or HTTP calls outside telephony adapters.
// - Unavailability outcomes are sentinel errors; everything else is *ProviderError.
type Directory interface {
	SearchNumbers(ctx context.Context, areaCode string) ([]CandidateNumber, error)
	PurchaseNumber(ctx context.Context, phoneNumber string) (PurchaseResult, error)
	ReleaseNumber(ctx context.Context, sid string) error
	ListIncoming(ctx context.Context) ([]IncomingNumber, error)
}

var (
	ErrInvalidAreaCode    = errors.New("telephony: area code must be 3 digits starting with 2-9")
	ErrInvalidPhoneNumber = errors.New("telephony: phone number must be E.164")
	ErrNoNumbersAvailable = errors.New("telephony: no local numbers with voice, SMS and MMS available in this area code")
	ErrNumberUnavailable  = errors.New("telephony: the requested number is no longer available")
)

// ProviderError is a transport, auth or malformed-response failure at the provider.
type ProviderError struct {
	Provider string
	Op       string
	// Status is the HTTP status, 0 when the request never completed.
	Status int
	// Code is the provider's own error code when one was returned.
	Code    int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: status %d code %d: %s", e.Provider, e.Op, e.Status, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Status, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type Capabilities struct {
	Voice bool `json:"voice"`
	SMS   bool `json:"sms"`
	MMS   bool `json:"mms"`
}

func (c Capabilities) Full() bool { return c.Voice && c.SMS && c.MMS }

// CandidateNumber is a purchasable number returned by a search.
type CandidateNumber struct {
	PhoneNumber  string       `json:"phone_number"`
	FriendlyName string       `json:"friendly_name"`
	Locality     string       `json:"locality"`
	Region       string       `json:"region"`
	Capabilities Capabilities `json:"capabilities"`
}

type PurchaseResult struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
}

// IncomingNumber is a number owned by the account at the provider.
type IncomingNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
}

var (
	areaCodeRe = regexp.MustCompile(`^[2-9]\d{2}$`)
	e164Re     = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	nanpRe     = regexp.MustCompile(`^\+1([2-9]\d{2})\d{7}$`)
)

func ValidateAreaCode(areaCode string) error {
	if !areaCodeRe.MatchString(areaCode) {
		return ErrInvalidAreaCode
	}
	return nil
}

func ValidatePhoneNumber(phoneNumber string) error {
	if !e164Re.MatchString(phoneNumber) {
		return ErrInvalidPhoneNumber
	}
	return nil
}

// AreaCodeOf returns the area code of a North American E.164 number, or "".
func AreaCodeOf(phoneNumber string) string {
	m := nanpRe.FindStringSubmatch(phoneNumber)
	if m == nil {
		return ""
	}
	return m[1]
}
