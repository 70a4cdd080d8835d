package voices

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/objectstore"
	"voice-agent-platform/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// languageSuffix matches a file named like "voice-en.mp3".
var languageSuffix = regexp.MustCompile(`-(\w+)\.mp3$`)

type MoveResult struct {
	File    string `json:"file"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	NewPath string `json:"new_path,omitempty"`
	Error   string `json:"error,omitempty"`
}

type MoveReport struct {
	Results []MoveResult `json:"results"`
}

func (r MoveReport) Moved() int {
	n := 0
	for _, m := range r.Results {
		if m.Success && !m.Skipped {
			n++
		}
	}
	return n
}

// Organizer moves preview files between the bucket root and per-language
// folders, keeping voices.storage_path in step.
type Organizer struct {
	Store objectstore.Store
	Repo  Repository
	Audit *audit.Service
	// Concurrency caps in-flight moves; <= 0 means no cap.
	Concurrency int
}

// Organize moves every root-level preview into "<lang>/". The language is the
// voice's stored language when known, else the filename suffix, else "en".
func (o Organizer) Organize(ctx context.Context) (MoveReport, error) {
	files, err := o.Store.List(ctx, "")
	if err != nil {
		return MoveReport{}, err
	}
	rep := o.run(ctx, files, func(ctx context.Context, f objectstore.Object) MoveResult {
		if f.IsFolder || strings.Contains(f.Name, "/") {
			return MoveResult{File: f.Name, Success: true, Skipped: true}
		}
		to := o.languageOf(ctx, f.Name) + "/" + f.Name
		return o.move(ctx, f.Name, to)
	})
	o.audit(ctx, "organize_voice_previews", rep)
	return rep, nil
}

// Revert moves previews out of language folders back to the bucket root.
func (o Organizer) Revert(ctx context.Context) (MoveReport, error) {
	root, err := o.Store.List(ctx, "")
	if err != nil {
		return MoveReport{}, err
	}
	var nested []objectstore.Object
	for _, f := range root {
		if !f.IsFolder {
			continue
		}
		children, err := o.Store.List(ctx, f.Name)
		if err != nil {
			return MoveReport{}, err
		}
		for _, c := range children {
			if c.IsFolder {
				continue
			}
			nested = append(nested, objectstore.Object{Name: f.Name + "/" + c.Name, Size: c.Size})
		}
	}
	rep := o.run(ctx, nested, func(ctx context.Context, f objectstore.Object) MoveResult {
		to := f.Name[strings.LastIndex(f.Name, "/")+1:]
		return o.move(ctx, f.Name, to)
	})
	o.audit(ctx, "revert_voice_previews", rep)
	return rep, nil
}

func (o Organizer) run(ctx context.Context, files []objectstore.Object, fn func(context.Context, objectstore.Object) MoveResult) MoveReport {
	results := make([]MoveResult, len(files))
	var g errgroup.Group
	if o.Concurrency > 0 {
		g.SetLimit(o.Concurrency)
	}
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = fn(ctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return MoveReport{Results: results}
}

func (o Organizer) move(ctx context.Context, from, to string) MoveResult {
	log := logger.From(ctx)
	if err := o.Store.Move(ctx, from, to); err != nil {
		log.Warn("preview move failed", "from", from, "to", to, "err", err)
		return MoveResult{File: from, Error: err.Error()}
	}
	if _, err := o.Repo.MoveStoragePath(ctx, from, to); err != nil {
		log.Warn("voice storage path update failed", "from", from, "to", to, "err", err)
		return MoveResult{File: from, Error: err.Error()}
	}
	return MoveResult{File: from, Success: true, NewPath: to}
}

func (o Organizer) languageOf(ctx context.Context, file string) string {
	id := strings.TrimSuffix(file, ".mp3")
	v, err := o.Repo.Get(ctx, id)
	if err == nil && v.Language != "" {
		return v.Language
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.From(ctx).Warn("voice lookup failed", "voice_id", id, "err", err)
	}
	return LanguageFromFilename(file)
}

// LanguageFromFilename returns the "-xx.mp3" suffix language, or "en".
func LanguageFromFilename(name string) string {
	if m := languageSuffix.FindStringSubmatch(name); m != nil {
		return strings.ToLower(m[1])
	}
	return "en"
}

func (o Organizer) audit(ctx context.Context, op string, rep MoveReport) {
	if o.Audit == nil {
		return
	}
	meta := map[string]int{"files": len(rep.Results), "moved": rep.Moved()}
	if err := o.Audit.LogAdminMaintenance(ctx, op, meta); err != nil {
		logger.From(ctx).Warn("audit maintenance failed", "op", op, "err", err)
	}
}
