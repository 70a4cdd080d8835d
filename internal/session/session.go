// Package session tracks signed-in dashboard sessions.
//
// A session starts with Init (after the auth provider signs the user in),
// slides forward on every authenticated request via Touch, and ends with
// Teardown on sign-out or when the inactivity timeout elapses. The rest of the
// application only reads the session through Current.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrExpired  = errors.New("session: expired")
)

// Info is the read view of a session exposed to handlers and workflows.
type Info struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	IsAdmin      bool      `json:"is_admin"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// IsAuthorized reports whether the dashboard may be shown for this session.
func (i Info) IsAuthorized() bool {
	return i.SessionID != "" && i.UserID != "" && i.IsAdmin
}

// Store persists sessions. Implementations expire entries after ttl of inactivity.
type Store interface {
	Put(ctx context.Context, info Info, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (Info, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// AdminChecker resolves the is_admin flag for a user.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type Manager struct {
	store   Store
	admins  AdminChecker
	timeout time.Duration
	clock   func() time.Time
}

func NewManager(store Store, admins AdminChecker, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{store: store, admins: admins, timeout: inactivityTimeout, clock: time.Now}
}

// Init starts (or restarts) a session and captures the user's admin flag.
func (m *Manager) Init(ctx context.Context, sessionID, userID string) (Info, error) {
	if sessionID == "" || userID == "" {
		return Info{}, errors.New("session: session_id and user_id required")
	}
	isAdmin, err := m.admins.IsAdmin(ctx, userID)
	if err != nil {
		return Info{}, err
	}
	now := m.clock().UTC()
	info := Info{SessionID: sessionID, UserID: userID, IsAdmin: isAdmin, StartedAt: now, LastActivity: now}
	if err := m.store.Put(ctx, info, m.timeout); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Touch records activity and returns the live session.
// A session idle for longer than the timeout is torn down and ErrExpired returned.
func (m *Manager) Touch(ctx context.Context, sessionID, userID string) (Info, error) {
	info, ok, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, ErrNotFound
	}
	if info.UserID != userID {
		return Info{}, ErrNotFound
	}
	now := m.clock().UTC()
	if now.Sub(info.LastActivity) > m.timeout {
		_ = m.store.Delete(ctx, sessionID)
		return Info{}, ErrExpired
	}
	info.LastActivity = now
	if err := m.store.Put(ctx, info, m.timeout); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Teardown ends the session. Deleting an unknown session is not an error.
func (m *Manager) Teardown(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

type ctxKey struct{}

func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// Current returns the session attached to ctx by the middleware.
func Current(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(ctxKey{}).(Info)
	return info, ok && info.SessionID != ""
}
