package voices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/internal/objectstore"
	"voice-agent-platform/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxPreviewBytes = 5 * 1024 * 1024
	previewContentType     = "audio/mpeg"
)

type ResultStatus string

const (
	ResultSynced  ResultStatus = "synced"
	ResultSkipped ResultStatus = "skipped"
	ResultFailed  ResultStatus = "failed"
)

type Result struct {
	VoiceID     string       `json:"voice_id"`
	Status      ResultStatus `json:"status"`
	StoragePath string       `json:"storage_path,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Summary reports a sync pass. Skipped voices have no preview URL.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Results    []Result `json:"results"`
}

// Syncer mirrors the provider catalog into the voices table and preview
// audio into object storage.
type Syncer struct {
	Catalog Catalog
	Store   objectstore.Store
	Repo    Repository
	Audit   *audit.Service
	// HTTP downloads previews; nil uses http.DefaultClient.
	HTTP *http.Client
	// MaxPreviewBytes defaults to 5 MiB.
	MaxPreviewBytes int64
	// Concurrency caps in-flight voices; <= 0 means one goroutine per voice.
	Concurrency int
}

// Sync runs one full catalog pass. Per-voice failures are reported in the
// summary; only a catalog listing failure returns an error.
func (s Syncer) Sync(ctx context.Context) (Summary, error) {
	log := logger.From(ctx)
	start := time.Now()

	catalog, err := s.Catalog.ListVoices(ctx)
	if err != nil {
		return Summary{}, err
	}

	results := make([]Result, len(catalog))
	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, v := range catalog {
		i, v := i, v
		g.Go(func() error {
			results[i] = s.syncOne(ctx, v)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Total: len(catalog), Results: results}
	for _, r := range results {
		switch r.Status {
		case ResultSynced:
			sum.Successful++
		case ResultFailed:
			sum.Failed++
		case ResultSkipped:
			sum.Skipped++
		}
	}

	metrics.RecordVoiceSync(sum.Successful, sum.Failed, sum.Skipped, time.Since(start))
	if s.Audit != nil {
		if err := s.Audit.LogVoiceSync(ctx, sum.Total, sum.Successful, sum.Failed); err != nil {
			log.Warn("audit voice sync failed", "err", err)
		}
	}
	log.Info("voice sync completed", "total", sum.Total, "successful", sum.Successful, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum, nil
}

func (s Syncer) syncOne(ctx context.Context, v CatalogVoice) Result {
	log := logger.From(ctx).With("voice_id", v.ID)
	if v.PreviewURL == "" {
		log.Debug("voice skipped, no preview url")
		return Result{VoiceID: v.ID, Status: ResultSkipped}
	}

	fail := func(err error) Result {
		log.Warn("voice sync failed", "err", err)
		return Result{VoiceID: v.ID, Status: ResultFailed, Error: err.Error()}
	}

	audio, err := s.download(ctx, v.PreviewURL)
	if err != nil {
		return fail(err)
	}
	path, err := s.previewPath(ctx, v.ID)
	if err != nil {
		return fail(fmt.Errorf("database lookup failed: %w", err))
	}
	if err := s.Store.Put(ctx, path, previewContentType, audio, true); err != nil {
		return fail(fmt.Errorf("upload failed: %w", err))
	}
	err = s.Repo.Upsert(ctx, Voice{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Language:    v.Language,
		PreviewURL:  v.PreviewURL,
		StoragePath: path,
	})
	if err != nil {
		return fail(fmt.Errorf("database update failed: %w", err))
	}
	return Result{VoiceID: v.ID, Status: ResultSynced, StoragePath: path}
}

// previewPath keeps a preview where it already lives, so a voice moved into
// a language folder is refreshed in place.
func (s Syncer) previewPath(ctx context.Context, id string) (string, error) {
	cur, err := s.Repo.Get(ctx, id)
	switch {
	case err == nil && cur.StoragePath != "":
		return cur.StoragePath, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return "", err
	}
	return id + ".mp3", nil
}

func (s Syncer) download(ctx context.Context, u string) ([]byte, error) {
	hc := s.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	limit := s.MaxPreviewBytes
	if limit <= 0 {
		limit = DefaultMaxPreviewBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch preview: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch preview: %s", resp.Status)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read preview: %w", err)
	}
	if int64(len(audio)) > limit {
		return nil, ErrPreviewTooLarge
	}
	return audio, nil
}
