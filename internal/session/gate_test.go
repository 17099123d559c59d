package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/state"
	"github.com/amit-mskl/sql-playground/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	recs []activity.Record
}

func (s *recordingSink) Enqueue(rec activity.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return true
}

func (s *recordingSink) records() []activity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]activity.Record(nil), s.recs...)
}

func newTestGate(t *testing.T) (*Gate, *state.SQLiteStore, *recordingSink) {
	t.Helper()

	fb := testutil.NewFakeBackend(t)
	fb.AddUser(testutil.FakeUser{LoginID: "u-1", Email: "ada@example.com", FullName: "Ada Lovelace", Password: "pw"})
	client, err := arena.NewClient(arena.Config{BaseURL: fb.URL()}, nil)
	require.NoError(t, err)

	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	sink := &recordingSink{}
	return NewGate(client, store, sink, testutil.NewTestLogger(t)), store, sink
}

func TestGate_LoginPersistsUser(t *testing.T) {
	gate, store, sink := newTestGate(t)
	ctx := context.Background()
	fixed := time.UnixMilli(1_700_000_000_000)
	gate.now = func() time.Time { return fixed }

	u, err := gate.Login(ctx, arena.Credentials{LoginID: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.FullName)
	assert.Equal(t, fixed.UnixMilli(), u.LoginTime)

	raw, ok, err := store.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"email":"ada@example.com"`)

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, activity.TypeLogin, recs[0].Type)
	assert.Equal(t, "ada@example.com", recs[0].LoginID)
}

func TestGate_LoginFailureStaysLoggedOut(t *testing.T) {
	gate, store, sink := newTestGate(t)
	ctx := context.Background()

	_, err := gate.Login(ctx, arena.Credentials{LoginID: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Nil(t, gate.Current())

	_, ok, err := store.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sink.records())

	_, err = gate.Require()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGate_SignupFillsMissingFields(t *testing.T) {
	gate, _, sink := newTestGate(t)

	u, err := gate.Signup(context.Background(), arena.Registration{FullName: "Grace Hopper", Email: "grace@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", u.Identity())
	assert.Equal(t, "Grace Hopper", u.DisplayName())

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, activity.TypeSignup, recs[0].Type)
}

type stubAuth struct {
	user arena.User
}

func (a stubAuth) Login(context.Context, arena.Credentials) (*arena.User, error) {
	u := a.user
	return &u, nil
}

func (a stubAuth) Signup(context.Context, arena.Registration) (*arena.User, error) {
	u := a.user
	return &u, nil
}

func TestGate_LoginFillsMissingIdentity(t *testing.T) {
	_, store, _ := newTestGate(t)
	ctx := context.Background()
	sink := &recordingSink{}
	gate := NewGate(stubAuth{user: arena.User{FullName: "Ada Lovelace"}}, store, sink, testutil.NewTestLogger(t))

	u, err := gate.Login(ctx, arena.Credentials{LoginID: "ada", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Identity())

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "ada", recs[0].LoginID)

	restored, err := NewGate(nil, store, nil, testutil.NewTestLogger(t)).Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "ada", restored.Identity())
	assert.Equal(t, "Ada Lovelace", restored.DisplayName())
}

func TestGate_RestoreAcrossInstances(t *testing.T) {
	gate, store, _ := newTestGate(t)
	ctx := context.Background()

	_, err := gate.Login(ctx, arena.Credentials{LoginID: "u-1", Password: "pw"})
	require.NoError(t, err)

	fresh := NewGate(nil, store, nil, testutil.NewTestLogger(t))
	u, err := fresh.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "ada@example.com", u.Identity())
}

func TestGate_RestoreDiscardsCorruptEntry(t *testing.T) {
	gate, store, _ := newTestGate(t)
	ctx := context.Background()
	require.NoError(t, store.SetItem(ctx, StorageKey, "{not json"))

	u, err := gate.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, ok, err := store.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_LogoutClearsStoredUser(t *testing.T) {
	gate, store, sink := newTestGate(t)
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)
	gate.now = func() time.Time { return start }

	_, err := gate.Login(ctx, arena.Credentials{LoginID: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	gate.now = func() time.Time { return start.Add(95 * time.Second) }
	require.NoError(t, gate.Logout(ctx))
	assert.Nil(t, gate.Current())

	_, ok, err := store.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)

	recs := sink.records()
	require.Len(t, recs, 2)
	logout := recs[1]
	assert.Equal(t, activity.TypeLogout, logout.Type)
	require.NotNil(t, logout.Result.SessionDuration)
	assert.Equal(t, int64(95), *logout.Result.SessionDuration)

	// Logging out again is harmless and logs nothing.
	require.NoError(t, gate.Logout(ctx))
	assert.Len(t, sink.records(), 2)
}
