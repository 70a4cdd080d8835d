package voices

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu     sync.Mutex
	voices map[string]Voice
}

func NewMemoryRepo(vs ...Voice) *MemoryRepo {
	r := &MemoryRepo{voices: map[string]Voice{}}
	for _, v := range vs {
		r.voices[v.ID] = v
	}
	return r
}

func (r *MemoryRepo) Upsert(ctx context.Context, v Voice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if cur, ok := r.voices[v.ID]; ok {
		v.CreatedAt = cur.CreatedAt
		if v.Language == "" {
			v.Language = cur.Language
		}
	} else {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	r.voices[v.ID] = v
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.voices[id]
	if !ok {
		return Voice{}, ErrNotFound
	}
	return v, nil
}

func (r *MemoryRepo) List(ctx context.Context, language string) ([]Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Voice{}
	for _, v := range r.voices {
		if language == "" || v.Language == language {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepo) MoveStoragePath(ctx context.Context, from, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, v := range r.voices {
		if v.StoragePath == from {
			v.StoragePath = to
			v.UpdatedAt = time.Now().UTC()
			r.voices[id] = v
			n++
		}
	}
	return n, nil
}
