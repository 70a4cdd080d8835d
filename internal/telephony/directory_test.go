package telephony

import (
	"errors"
	"testing"
)

func TestValidateAreaCode(t *testing.T) {
	valid := []string{"415", "212", "999", "200"}
	for _, ac := range valid {
		if err := ValidateAreaCode(ac); err != nil {
			t.Fatalf("%q: expected valid, got %v", ac, err)
		}
	}
	invalid := []string{"", "123", "023", "41", "4155", "4a5", " 415"}
	for _, ac := range invalid {
		if err := ValidateAreaCode(ac); !errors.Is(err, ErrInvalidAreaCode) {
			t.Fatalf("%q: expected ErrInvalidAreaCode, got %v", ac, err)
		}
	}
}

func TestAreaCodeOf(t *testing.T) {
	if got := AreaCodeOf("+14155550100"); got != "415" {
		t.Fatalf("expected 415, got %q", got)
	}
	if got := AreaCodeOf("+442071838750"); got != "" {
		t.Fatalf("expected empty for non-NANP number, got %q", got)
	}
}

func TestProviderErrorUnwraps(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	var err error = &ProviderError{Provider: "twilio", Op: "search", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("expected wrapped transport error")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Op != "search" {
		t.Fatalf("expected *ProviderError")
	}
}
