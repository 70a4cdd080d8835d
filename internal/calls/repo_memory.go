package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
// AgentNames stands in for the agents join.
type MemoryRepo struct {
	mu         sync.Mutex
	calls      map[string]Call // key: provider_call_id
	AgentNames map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: map[string]Call{}, AgentNames: map[string]string{}}
}

func (r *MemoryRepo) Upsert(ctx context.Context, c Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.calls[c.ProviderCallID]
	if ok {
		if !cur.Status.Terminal() {
			cur.Status = c.Status
		}
		if c.AgentID != "" {
			cur.AgentID = c.AgentID
		}
		if c.From != "" {
			cur.From = c.From
		}
		if c.Duration != nil {
			cur.Duration = c.Duration
		}
		if cur.StartedAt == nil {
			cur.StartedAt = c.StartedAt
		}
		if c.EndedAt != nil {
			cur.EndedAt = c.EndedAt
		}
		cur.UpdatedAt = c.CreatedAt
		c = cur
	} else {
		c.UpdatedAt = c.CreatedAt
	}
	r.calls[c.ProviderCallID] = c
	return r.withName(c), nil
}

func (r *MemoryRepo) withName(c Call) Call {
	c.AgentName = r.AgentNames[c.AgentID]
	return c
}

func (r *MemoryRepo) sorted(keep func(Call) bool) []Call {
	out := []Call{}
	for _, c := range r.calls {
		if keep(c) {
			out = append(out, r.withName(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRepo) Page(ctx context.Context, offset, limit int) ([]Call, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(func(Call) bool { return true })
	if offset < 0 || offset >= len(all) {
		return []Call{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r *MemoryRepo) ListRange(ctx context.Context, from, to time.Time) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(c Call) bool {
		return !c.CreatedAt.Before(from) && c.CreatedAt.Before(to)
	}), nil
}
