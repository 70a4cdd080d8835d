package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TwilioVoiceForm captures the subset of voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/usage/webhooks/voice-webhooks
type TwilioVoiceForm struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	Direction    string
	CallStatus   string
	CallDuration int
	Timestamp    time.Time
}

func ParseTwilioVoiceForm(r *http.Request) (TwilioVoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioVoiceForm{}, err
	}
	f := TwilioVoiceForm{
		CallSid:    r.PostFormValue("CallSid"),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
		CallStatus: r.PostFormValue("CallStatus"),
	}
	if d := r.PostFormValue("CallDuration"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n >= 0 {
			f.CallDuration = n
		}
	}
	// Status callbacks carry an RFC 1123 timestamp.
	if ts := r.PostFormValue("Timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC1123Z, ts); err == nil {
			f.Timestamp = t.UTC()
		}
	}
	return f, nil
}

func (f TwilioVoiceForm) InboundCallRequest(now time.Time) InboundCallRequest {
	at := f.Timestamp
	if at.IsZero() {
		at = now
	}
	return InboundCallRequest{ProviderCallID: f.CallSid, From: f.From, To: f.To, OccurredAt: at}
}

func (f TwilioVoiceForm) CallEvent(now time.Time) CallEvent {
	at := f.Timestamp
	if at.IsZero() {
		at = now
	}
	return CallEvent{
		ProviderCallID:  f.CallSid,
		From:            f.From,
		To:              f.To,
		Status:          f.CallStatus,
		DurationSeconds: f.CallDuration,
		OccurredAt:      at,
	}
}

// TwilioSignature computes X-Twilio-Signature for a POST to fullURL with params.
func TwilioSignature(authToken, fullURL string, params map[string][]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidTwilioSignature parses the form of r and checks its signature.
// The public URL is rebuilt from the forwarded proto and host headers.
func ValidTwilioSignature(r *http.Request, authToken string) bool {
	sig := r.Header.Get("X-Twilio-Signature")
	if sig == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	want := TwilioSignature(authToken, scheme+"://"+host+r.URL.RequestURI(), r.PostForm)
	return hmac.Equal([]byte(sig), []byte(want))
}
