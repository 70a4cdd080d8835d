package agents

import (
	"context"
	"sort"
	"sync"
	"time"

	"voice-agent-platform/pkg/utils"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
// It ignores the Querier, so multi-step writes are not rolled back.
type MemoryRepo struct {
	mu     sync.Mutex
	agents map[string]Agent
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{agents: map[string]Agent{}} }

func (r *MemoryRepo) Insert(ctx context.Context, q utils.Querier, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.UpdatedAt = a.CreatedAt
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, q utils.Querier, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.agents[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.PhoneNumber = cur.PhoneNumber
	a.CreatedAt = cur.CreatedAt
	a.CreatedBy = cur.CreatedBy
	a.UpdatedAt = time.Now().UTC()
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) SetPhoneNumber(ctx context.Context, q utils.Querier, agentID, phoneNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	a.PhoneNumber = phoneNumber
	a.UpdatedAt = time.Now().UTC()
	r.agents[agentID] = a
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, q utils.Querier, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return ErrNotFound
	}
	delete(r.agents, id)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
