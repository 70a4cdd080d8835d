// Package profiles reads the user profile rows created by the auth provider.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("profile not found")

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Get(ctx context.Context, userID string) (Profile, error)
}

// AdminChecker adapts a Repository to session.AdminChecker.
// A user without a profile row is not an admin.
type AdminChecker struct {
	Repo Repository
}

func (a AdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	p, err := a.Repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.IsAdmin, nil
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT id, COALESCE(email, ''), is_admin, created_at
FROM profiles
WHERE id = $1
`
	var p Profile
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&p.ID, &p.Email, &p.IsAdmin, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

type MemoryRepo struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryRepo(ps ...Profile) *MemoryRepo {
	r := &MemoryRepo{profiles: map[string]Profile{}}
	for _, p := range ps {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Put(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
}
