package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"voice-agent-platform/internal/config"
)

func newTestTwilio(t *testing.T, h http.HandlerFunc) (*TwilioClient, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":20003,"message":"Authenticate","status":401}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewTwilioClient(config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		BaseURL:    srv.URL,
		VoiceURL:   "https://example.test/webhooks/twilio/voice",
	}, srv.Client())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c, &hits
}

const availableBody = `{"available_phone_numbers":[
 {"phone_number":"+14155550100","friendly_name":"(415) 555-0100","locality":"San Francisco","region":"CA","capabilities":{"voice":true,"SMS":true,"MMS":true}},
 {"phone_number":"+14155550101","friendly_name":"(415) 555-0101","locality":"San Francisco","region":"CA","capabilities":{"voice":true,"SMS":true,"MMS":false}},
 {"phone_number":"+14155550102","friendly_name":"(415) 555-0102","locality":"Oakland","region":"CA","capabilities":{"voice":true,"SMS":true,"MMS":true}}
]}`

func TestSearchNumbers_FiltersCapabilitiesAndKeepsOrder(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/Accounts/AC123/AvailablePhoneNumbers/US/Local.json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("AreaCode") != "415" || q.Get("VoiceEnabled") != "true" || q.Get("SmsEnabled") != "true" || q.Get("MmsEnabled") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("PageSize") != "20" {
			t.Errorf("expected PageSize=20, got %q", q.Get("PageSize"))
		}
		_, _ = w.Write([]byte(availableBody))
	})

	got, err := c.SearchNumbers(context.Background(), "415")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].PhoneNumber != "+14155550100" || got[1].PhoneNumber != "+14155550102" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].Capabilities.Full() || got[1].Locality != "Oakland" {
		t.Fatalf("unexpected candidate fields: %+v", got)
	}
}

func TestSearchNumbers_InvalidAreaCodeMakesNoCall(t *testing.T) {
	c, hits := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(availableBody))
	})

	_, err := c.SearchNumbers(context.Background(), "123")
	if !errors.Is(err, ErrInvalidAreaCode) {
		t.Fatalf("expected ErrInvalidAreaCode, got %v", err)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatalf("expected no provider call, got %d", *hits)
	}
}

func TestSearchNumbers_Empty(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"available_phone_numbers":[]}`))
	})
	_, err := c.SearchNumbers(context.Background(), "907")
	if !errors.Is(err, ErrNoNumbersAvailable) {
		t.Fatalf("expected ErrNoNumbersAvailable, got %v", err)
	}
}

func TestSearchNumbers_AuthFailureIsProviderError(t *testing.T) {
	c, _ := newTestTwilio(t, nil)
	c.authToken = "wrong"

	_, err := c.SearchNumbers(context.Background(), "415")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if pe.Status != http.StatusUnauthorized || pe.Code != 20003 {
		t.Fatalf("unexpected provider error: %+v", pe)
	}
}

func TestPurchaseNumber_Success(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/Local.json"):
			if r.URL.Query().Get("Contains") != "+14155550100" {
				t.Errorf("expected re-verification by number, got %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"available_phone_numbers":[{"phone_number":"+14155550100","capabilities":{"voice":true,"SMS":true,"MMS":true}}]}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/IncomingPhoneNumbers.json"):
			_ = r.ParseForm()
			if r.PostForm.Get("PhoneNumber") != "+14155550100" {
				t.Errorf("unexpected PhoneNumber %q", r.PostForm.Get("PhoneNumber"))
			}
			if r.PostForm.Get("VoiceUrl") == "" {
				t.Errorf("expected VoiceUrl to be set")
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"sid":"PN1","phone_number":"+14155550100","friendly_name":"(415) 555-0100"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := c.PurchaseNumber(context.Background(), "+14155550100")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.SID != "PN1" || res.FriendlyName != "(415) 555-0100" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPurchaseNumber_GoneBeforeCommit(t *testing.T) {
	c, hits := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Errorf("purchase must not be attempted")
		}
		_, _ = w.Write([]byte(`{"available_phone_numbers":[]}`))
	})

	_, err := c.PurchaseNumber(context.Background(), "+14155550100")
	if !errors.Is(err, ErrNumberUnavailable) {
		t.Fatalf("expected ErrNumberUnavailable, got %v", err)
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected only the verification call, got %d", *hits)
	}
}

func TestPurchaseNumber_Code21404(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"available_phone_numbers":[{"phone_number":"+14155550100"}]}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21404,"message":"Phone number is not available","status":400}`))
	})

	_, err := c.PurchaseNumber(context.Background(), "+14155550100")
	if !errors.Is(err, ErrNumberUnavailable) {
		t.Fatalf("expected ErrNumberUnavailable, got %v", err)
	}
}

func TestPurchaseNumber_OtherErrorsAreProviderErrors(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"available_phone_numbers":[{"phone_number":"+14155550100"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	})

	_, err := c.PurchaseNumber(context.Background(), "+14155550100")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 provider error, got %v", err)
	}
	if errors.Is(err, ErrNumberUnavailable) {
		t.Fatalf("5xx must not be reported as unavailable")
	}
}

func TestReleaseNumber_NotFoundIsReleased(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || !strings.HasSuffix(r.URL.Path, "/IncomingPhoneNumbers/PN1.json") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":20404,"message":"not found","status":404}`))
	})
	if err := c.ReleaseNumber(context.Background(), "PN1"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestListIncoming_FollowsPages(t *testing.T) {
	c, _ := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Page") == "1" {
			_, _ = w.Write([]byte(`{"incoming_phone_numbers":[{"sid":"PN2","phone_number":"+14155550102"}],"next_page_uri":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"incoming_phone_numbers":[{"sid":"PN1","phone_number":"+14155550100"}],"next_page_uri":"/2010-04-01/Accounts/AC123/IncomingPhoneNumbers.json?PageSize=1000&Page=1"}`))
	})

	got, err := c.ListIncoming(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].SID != "PN1" || got[1].SID != "PN2" {
		t.Fatalf("unexpected numbers: %+v", got)
	}
}
