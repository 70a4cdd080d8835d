package numbers

import (
	"context"
	"sort"
	"sync"
	"time"

	"voice-agent-platform/pkg/utils"
)

var now = func() time.Time { return time.Now().UTC() }

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]PhoneNumber

	// FailInsert makes Insert return this error when set.
	FailInsert error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{rows: map[string]PhoneNumber{}} }

func (r *MemoryRepo) Insert(ctx context.Context, p PhoneNumber) (PhoneNumber, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		return PhoneNumber{}, false, r.FailInsert
	}
	for _, row := range r.rows {
		if row.TwilioSID == p.TwilioSID {
			return row, false, nil
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	p.UpdatedAt = p.CreatedAt
	r.rows[p.ID] = p
	return p, true, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return PhoneNumber{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) find(match func(PhoneNumber) bool) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if match(p) {
			return p, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (r *MemoryRepo) GetBySID(ctx context.Context, sid string) (PhoneNumber, error) {
	return r.find(func(p PhoneNumber) bool { return p.TwilioSID == sid })
}

func (r *MemoryRepo) GetByNumber(ctx context.Context, phoneNumber string) (PhoneNumber, error) {
	return r.find(func(p PhoneNumber) bool { return p.PhoneNumber == phoneNumber })
}

func (r *MemoryRepo) List(ctx context.Context) ([]PhoneNumber, error) {
	return r.filter(func(PhoneNumber) bool { return true }), nil
}

func (r *MemoryRepo) ListAvailable(ctx context.Context) ([]PhoneNumber, error) {
	return r.filter(PhoneNumber.Available), nil
}

func (r *MemoryRepo) filter(keep func(PhoneNumber) bool) []PhoneNumber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []PhoneNumber{}
	for _, p := range r.rows {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepo) Link(ctx context.Context, q utils.Querier, numberID, agentID string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[numberID]
	if !ok {
		return PhoneNumber{}, ErrNotFound
	}
	if p.AgentID != "" && p.AgentID != agentID {
		return PhoneNumber{}, ErrAlreadyAssigned
	}
	for id, other := range r.rows {
		if id != numberID && other.AgentID == agentID {
			other.AgentID = ""
			other.UpdatedAt = now()
			r.rows[id] = other
		}
	}
	p.AgentID = agentID
	p.UpdatedAt = now()
	r.rows[numberID] = p
	return p, nil
}

func (r *MemoryRepo) Unlink(ctx context.Context, q utils.Querier, numberID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[numberID]
	if !ok {
		return "", ErrNotFound
	}
	prev := p.AgentID
	p.AgentID = ""
	p.UpdatedAt = now()
	r.rows[numberID] = p
	return prev, nil
}

func (r *MemoryRepo) ClearAgent(ctx context.Context, q utils.Querier, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.rows {
		if p.AgentID == agentID {
			p.AgentID = ""
			p.UpdatedAt = now()
			r.rows[id] = p
		}
	}
	return nil
}
