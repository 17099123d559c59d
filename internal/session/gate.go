// Package session is the auth gate: it forwards login and signup forms to
// the backend, persists the signed-in user locally and clears it at logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
)

// StorageKey is the local storage entry holding the serialized user.
const StorageKey = "sqlArenaUser"

// ErrNotLoggedIn is returned by operations that need a signed-in user.
var ErrNotLoggedIn = errors.New("not logged in (run 'sqlarena login' first)")

// Storage is a string key/value store standing in for browser local storage.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Authenticator forwards auth forms to the backend.
type Authenticator interface {
	Login(ctx context.Context, creds arena.Credentials) (*arena.User, error)
	Signup(ctx context.Context, reg arena.Registration) (*arena.User, error)
}

// Gate owns the current user.
type Gate struct {
	auth     Authenticator
	storage  Storage
	activity activity.Sink
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.RWMutex
	user *arena.User
}

// NewGate creates a gate. sink may be nil to disable activity logging.
func NewGate(auth Authenticator, storage Storage, sink activity.Sink, logger *slog.Logger) *Gate {
	if sink == nil {
		sink = activity.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{
		auth:     auth,
		storage:  storage,
		activity: sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Restore loads the persisted user, if any. A corrupt entry is removed and
// treated as logged out.
func (g *Gate) Restore(ctx context.Context) (*arena.User, error) {
	raw, ok, err := g.storage.GetItem(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored session: %w", err)
	}
	if !ok {
		g.setUser(nil)
		return nil, nil
	}

	var u arena.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.Identity() == "" {
		g.logger.Warn("discarding unreadable stored session", "error", err)
		if rmErr := g.storage.RemoveItem(ctx, StorageKey); rmErr != nil {
			return nil, fmt.Errorf("failed to clear stored session: %w", rmErr)
		}
		g.setUser(nil)
		return nil, nil
	}

	g.setUser(&u)
	return g.Current(), nil
}

// Current returns a copy of the signed-in user, or nil.
func (g *Gate) Current() *arena.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// Require returns the current user or ErrNotLoggedIn.
func (g *Gate) Require() (*arena.User, error) {
	if u := g.Current(); u != nil {
		return u, nil
	}
	return nil, ErrNotLoggedIn
}

// Login forwards creds and persists the returned user.
func (g *Gate) Login(ctx context.Context, creds arena.Credentials) (*arena.User, error) {
	u, err := g.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if u.Identity() == "" {
		u.LoginID = creds.LoginID
	}
	if err := g.accept(ctx, u); err != nil {
		return nil, err
	}
	g.activity.Enqueue(activity.New(activity.TypeLogin, u.Identity(), true))
	return g.Current(), nil
}

// Signup forwards reg and persists the returned user.
func (g *Gate) Signup(ctx context.Context, reg arena.Registration) (*arena.User, error) {
	u, err := g.auth.Signup(ctx, reg)
	if err != nil {
		return nil, err
	}
	if u.Email == "" && u.LoginID == "" {
		u.Email = reg.Email
	}
	if u.FullName == "" {
		u.FullName = reg.FullName
	}
	if err := g.accept(ctx, u); err != nil {
		return nil, err
	}
	g.activity.Enqueue(activity.New(activity.TypeSignup, u.Identity(), true))
	return g.Current(), nil
}

// Logout logs the session duration and clears the stored user. Logging out
// while logged out is a no-op.
func (g *Gate) Logout(ctx context.Context) error {
	u := g.Current()
	if u != nil {
		rec := activity.New(activity.TypeLogout, u.Identity(), true).
			WithSessionDuration(g.sessionDuration(u))
		g.activity.Enqueue(rec)
	}

	if err := g.storage.RemoveItem(ctx, StorageKey); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	g.setUser(nil)
	return nil
}

func (g *Gate) accept(ctx context.Context, u *arena.User) error {
	if u.LoginTime == 0 {
		u.LoginTime = g.now().UnixMilli()
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := g.storage.SetItem(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	g.setUser(u)
	return nil
}

func (g *Gate) sessionDuration(u *arena.User) time.Duration {
	start := u.LoggedInAt()
	if start.IsZero() {
		return 0
	}
	d := g.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

func (g *Gate) setUser(u *arena.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.user = u
}
