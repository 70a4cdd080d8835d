package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-agent-platform/internal/config"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/pkg/logger"
)

const (
	twilioAPIVersion = "2010-04-01"
	searchPageSize   = 20

	// twilioCodeNumberUnavailable is returned when a number was bought by
	// someone else between search and purchase.
	twilioCodeNumberUnavailable = 21404
)

// TwilioClient implements Directory against the Twilio REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	baseURL    string
	voiceURL   string
	smsURL     string
	http       *http.Client
}

func NewTwilioClient(cfg config.TwilioConfig, hc *http.Client) (*TwilioClient, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: missing Twilio credentials")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	return &TwilioClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    base,
		voiceURL:   cfg.VoiceURL,
		smsURL:     cfg.SMSURL,
		http:       hc,
	}, nil
}

type twilioAvailableNumber struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	Capabilities struct {
		Voice bool `json:"voice"`
		SMS   bool `json:"SMS"`
		MMS   bool `json:"MMS"`
	} `json:"capabilities"`
}

type twilioAvailableList struct {
	AvailablePhoneNumbers []twilioAvailableNumber `json:"available_phone_numbers"`
}

type twilioIncomingNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
}

type twilioIncomingList struct {
	IncomingPhoneNumbers []twilioIncomingNumber `json:"incoming_phone_numbers"`
	NextPageURI          string                 `json:"next_page_uri"`
}

type twilioErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// SearchNumbers lists US local numbers in areaCode that support voice, SMS and MMS.
// The provider order is preserved.
func (t *TwilioClient) SearchNumbers(ctx context.Context, areaCode string) ([]CandidateNumber, error) {
	if err := ValidateAreaCode(areaCode); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("AreaCode", areaCode)
	q.Set("VoiceEnabled", "true")
	q.Set("SmsEnabled", "true")
	q.Set("MmsEnabled", "true")
	q.Set("PageSize", fmt.Sprint(searchPageSize))

	list, err := t.available(ctx, "search", q)
	if err != nil {
		return nil, err
	}

	out := make([]CandidateNumber, 0, len(list.AvailablePhoneNumbers))
	for _, n := range list.AvailablePhoneNumbers {
		caps := Capabilities{Voice: n.Capabilities.Voice, SMS: n.Capabilities.SMS, MMS: n.Capabilities.MMS}
		// The capability filters are advisory at the provider; check again.
		if !caps.Full() {
			continue
		}
		out = append(out, CandidateNumber{
			PhoneNumber:  n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			Locality:     n.Locality,
			Region:       n.Region,
			Capabilities: caps,
		})
	}

	logger.From(ctx).Info("twilio number search", "area_code", areaCode, "found", len(out))
	if len(out) == 0 {
		return nil, ErrNoNumbersAvailable
	}
	return out, nil
}

// PurchaseNumber buys phoneNumber after re-checking it is still available.
func (t *TwilioClient) PurchaseNumber(ctx context.Context, phoneNumber string) (PurchaseResult, error) {
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return PurchaseResult{}, err
	}

	q := url.Values{}
	q.Set("Contains", phoneNumber)
	q.Set("PageSize", "1")
	list, err := t.available(ctx, "verify", q)
	if err != nil {
		return PurchaseResult{}, err
	}
	found := false
	for _, n := range list.AvailablePhoneNumbers {
		if n.PhoneNumber == phoneNumber {
			found = true
			break
		}
	}
	if !found {
		return PurchaseResult{}, ErrNumberUnavailable
	}

	form := url.Values{}
	form.Set("PhoneNumber", phoneNumber)
	if t.voiceURL != "" {
		form.Set("VoiceUrl", t.voiceURL)
	}
	if t.smsURL != "" {
		form.Set("SmsUrl", t.smsURL)
	}

	var created twilioIncomingNumber
	err = t.do(ctx, "purchase", http.MethodPost, t.accountURL("IncomingPhoneNumbers.json"), form, &created)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.Code == twilioCodeNumberUnavailable {
			return PurchaseResult{}, ErrNumberUnavailable
		}
		return PurchaseResult{}, err
	}
	if created.SID == "" {
		return PurchaseResult{}, &ProviderError{Provider: "twilio", Op: "purchase", Status: http.StatusOK, Message: "response missing sid"}
	}

	logger.From(ctx).Info("twilio number purchased", "sid", created.SID, "phone_number", created.PhoneNumber)
	return PurchaseResult{SID: created.SID, PhoneNumber: created.PhoneNumber, FriendlyName: created.FriendlyName}, nil
}

// ReleaseNumber removes an owned number from the account.
// A number the provider no longer knows is treated as already released.
func (t *TwilioClient) ReleaseNumber(ctx context.Context, sid string) error {
	if sid == "" {
		return errors.New("telephony: sid required")
	}
	err := t.do(ctx, "release", http.MethodDelete, t.accountURL("IncomingPhoneNumbers/"+url.PathEscape(sid)+".json"), nil, nil)
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// ListIncoming returns every number owned by the account, following pagination.
func (t *TwilioClient) ListIncoming(ctx context.Context) ([]IncomingNumber, error) {
	var out []IncomingNumber
	next := t.accountURL("IncomingPhoneNumbers.json?PageSize=1000")
	for next != "" {
		var page twilioIncomingList
		if err := t.do(ctx, "list_incoming", http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		for _, n := range page.IncomingPhoneNumbers {
			out = append(out, IncomingNumber{SID: n.SID, PhoneNumber: n.PhoneNumber, FriendlyName: n.FriendlyName})
		}
		next = ""
		if page.NextPageURI != "" {
			next = t.baseURL + page.NextPageURI
		}
	}
	return out, nil
}

func (t *TwilioClient) available(ctx context.Context, op string, q url.Values) (twilioAvailableList, error) {
	var list twilioAvailableList
	u := t.accountURL("AvailablePhoneNumbers/US/Local.json") + "?" + q.Encode()
	if err := t.do(ctx, op, http.MethodGet, u, nil, &list); err != nil {
		return twilioAvailableList{}, err
	}
	return list, nil
}

func (t *TwilioClient) accountURL(path string) string {
	return fmt.Sprintf("%s/%s/Accounts/%s/%s", t.baseURL, twilioAPIVersion, url.PathEscape(t.accountSID), path)
}

func (t *TwilioClient) do(ctx context.Context, op, method, u string, form url.Values, out any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall("twilio", op, err, time.Since(start)) }()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &ProviderError{Provider: "twilio", Op: op, Err: err}
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return &ProviderError{Provider: "twilio", Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &ProviderError{Provider: "twilio", Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 300 {
		var eb twilioErrorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		logger.From(ctx).Warn("twilio request failed", "op", op, "status", resp.StatusCode, "code", eb.Code)
		return &ProviderError{Provider: "twilio", Op: op, Status: resp.StatusCode, Code: eb.Code, Message: msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProviderError{Provider: "twilio", Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}
