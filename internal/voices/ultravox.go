package voices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-agent-platform/internal/config"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/pkg/logger"
)

// CatalogVoice is a voice as listed by the synthesis provider.
type CatalogVoice struct {
	ID          string
	Name        string
	Description string
	Language    string
	PreviewURL  string
}

// Catalog lists the provider's voices.
type Catalog interface {
	ListVoices(ctx context.Context) ([]CatalogVoice, error)
}

// CatalogError is a failed catalog request.
type CatalogError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("voices: ultravox %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("voices: ultravox %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// UltravoxClient implements Catalog against the Ultravox REST API.
type UltravoxClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewUltravoxClient(cfg config.UltravoxConfig, hc *http.Client) (*UltravoxClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("voices: missing Ultravox API key")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.ultravox.ai"
	}
	return &UltravoxClient{apiKey: cfg.APIKey, baseURL: base, http: hc}, nil
}

// ultravoxVoice accepts both the current camelCase fields and the older
// snake_case shape.
type ultravoxVoice struct {
	VoiceID         string `json:"voiceId"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PreviewURL      string `json:"previewUrl"`
	PreviewURLSnake string `json:"preview_url"`
	PrimaryLanguage string `json:"primaryLanguage"`
	Language        string `json:"language"`
}

type ultravoxPage struct {
	Results []ultravoxVoice `json:"results"`
	Voices  []ultravoxVoice `json:"voices"`
	Next    string          `json:"next"`
}

// ListVoices returns the full catalog, following "next" links.
func (c *UltravoxClient) ListVoices(ctx context.Context) ([]CatalogVoice, error) {
	var out []CatalogVoice
	next := c.baseURL + "/api/voices"
	for pages := 0; next != ""; pages++ {
		if pages >= 100 {
			return nil, &CatalogError{Op: "list_voices", Message: "too many pages"}
		}
		var page ultravoxPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		items := page.Results
		if items == nil {
			items = page.Voices
		}
		if items == nil && page.Next == "" && pages == 0 {
			return nil, &CatalogError{Op: "list_voices", Status: http.StatusOK, Message: "invalid response format"}
		}
		for _, v := range items {
			out = append(out, v.catalogVoice())
		}
		next = page.Next
	}
	logger.From(ctx).Info("ultravox voices listed", "count", len(out))
	return out, nil
}

func (v ultravoxVoice) catalogVoice() CatalogVoice {
	id := v.VoiceID
	if id == "" {
		id = v.ID
	}
	preview := v.PreviewURL
	if preview == "" {
		preview = v.PreviewURLSnake
	}
	lang := v.PrimaryLanguage
	if lang == "" {
		lang = v.Language
	}
	return CatalogVoice{
		ID:          id,
		Name:        v.Name,
		Description: v.Description,
		Language:    NormalizeLanguage(lang),
		PreviewURL:  preview,
	}
}

// NormalizeLanguage reduces a tag such as "en-US" to "en".
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

func (c *UltravoxClient) get(ctx context.Context, u string, out any) (err error) {
	const op = "list_voices"
	start := time.Now()
	defer func() { metrics.RecordProviderCall("ultravox", op, err, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &CatalogError{Op: op, Err: err}
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &CatalogError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &CatalogError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 300 {
		logger.From(ctx).Warn("ultravox request failed", "status", resp.StatusCode)
		return &CatalogError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &CatalogError{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}
