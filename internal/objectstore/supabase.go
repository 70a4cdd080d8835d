package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-agent-platform/internal/config"
	"voice-agent-platform/internal/metrics"
)

const listPageSize = 100

// SupabaseStore talks to the Supabase Storage REST API for one bucket.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	http       *http.Client
}

func NewSupabaseStore(cfg config.StorageConfig, hc *http.Client) (*SupabaseStore, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" {
		return nil, errors.New("objectstore: missing storage url or service key")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "voice-previews"
	}
	return &SupabaseStore{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/storage/v1",
		serviceKey: cfg.ServiceKey,
		bucket:     bucket,
		http:       hc,
	}, nil
}

func (s *SupabaseStore) Put(ctx context.Context, path, contentType string, data []byte, upsert bool) error {
	req, err := s.newRequest(ctx, http.MethodPost, "/object/"+s.bucket+"/"+escapePath(path), bytes.NewReader(data))
	if err != nil {
		return &StorageError{Op: "put", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if upsert {
		req.Header.Set("x-upsert", "true")
	}
	return s.do("put", req, nil)
}

func (s *SupabaseStore) Move(ctx context.Context, from, to string) error {
	body := map[string]string{"bucketId": s.bucket, "sourceKey": from, "destinationKey": to}
	req, err := s.jsonRequest(ctx, http.MethodPost, "/object/move", body)
	if err != nil {
		return &StorageError{Op: "move", Err: err}
	}
	return s.do("move", req, nil)
}

type listEntry struct {
	Name     string  `json:"name"`
	ID       *string `json:"id"`
	Metadata *struct {
		Size int64 `json:"size"`
	} `json:"metadata"`
}

func (s *SupabaseStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	for offset := 0; ; offset += listPageSize {
		body := map[string]any{
			"prefix": strings.Trim(prefix, "/"),
			"limit":  listPageSize,
			"offset": offset,
			"sortBy": map[string]string{"column": "name", "order": "asc"},
		}
		req, err := s.jsonRequest(ctx, http.MethodPost, "/object/list/"+s.bucket, body)
		if err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		var page []listEntry
		if err := s.do("list", req, &page); err != nil {
			return nil, err
		}
		for _, e := range page {
			o := Object{Name: e.Name, IsFolder: e.ID == nil}
			if e.Metadata != nil {
				o.Size = e.Metadata.Size
			}
			out = append(out, o)
		}
		if len(page) < listPageSize {
			return out, nil
		}
	}
}

func (s *SupabaseStore) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	req, err := s.jsonRequest(ctx, http.MethodDelete, "/object/"+s.bucket, map[string][]string{"prefixes": paths})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return s.do("delete", req, nil)
}

func (s *SupabaseStore) PublicURL(path string) string {
	return s.baseURL + "/object/public/" + s.bucket + "/" + escapePath(path)
}

func (s *SupabaseStore) jsonRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := s.newRequest(ctx, method, path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *SupabaseStore) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	return req, nil
}

type storageErrorBody struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func (s *SupabaseStore) do(op string, req *http.Request, out any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall("storage", op, err, time.Since(start)) }()

	resp, err := s.http.Do(req)
	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &StorageError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 300 {
		var eb storageErrorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusNotFound || eb.StatusCode == "404" {
			return &StorageError{Op: op, Status: http.StatusNotFound, Message: msg, Err: ErrNotFound}
		}
		return &StorageError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &StorageError{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
