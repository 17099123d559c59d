package arena_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, fb *testutil.FakeBackend) *arena.Client {
	t.Helper()
	c, err := arena.NewClient(arena.Config{BaseURL: fb.URL() + "/"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "localhost:8080"},
		{"ftp", "ftp://example.com"},
		{"no host", "http://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := arena.NewClient(arena.Config{BaseURL: tt.url}, nil)
			require.Error(t, err)
		})
	}
}

func TestClient_ListTables(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.AddTable("customers")
	fb.AddTable("orders")

	tables, err := newClient(t, fb).ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []arena.Table{{Name: "customers"}, {Name: "orders"}}, tables)
}

func TestClient_FetchSchema(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.AddTable("customers",
		testutil.FakeColumn{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
		testutil.FakeColumn{Name: "email", Type: "TEXT", Nullable: true},
	)
	c := newClient(t, fb)

	cols, err := c.FetchSchema(context.Background(), "customers")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].IsPrimaryKey)
	assert.False(t, cols[0].Nullable)
	assert.True(t, cols[1].Nullable)

	_, err = c.FetchSchema(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, arena.IsBackendError(err))
	assert.Equal(t, "Table not found", err.Error())
}

func TestClient_Query(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.OnQuery(func(sql string) (int, any) {
		switch sql {
		case "SELECT 1;":
			return http.StatusOK, `{"success":true,"data":[{"z":1,"a":"x"},{"z":2,"a":"y"}],"rowCount":2}`
		case "BROKEN;":
			return http.StatusBadRequest, map[string]any{"success": false, "error": "near \"BROKEN\": syntax error"}
		default:
			return http.StatusBadGateway, "<html>bad gateway</html>"
		}
	})
	c := newClient(t, fb)
	ctx := context.Background()

	res, err := c.Query(ctx, "SELECT 1;")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"z", "a"}, res.Rows[0].Keys())

	_, err = c.Query(ctx, "BROKEN;")
	var be *arena.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, `near "BROKEN": syntax error`, be.Message)

	_, err = c.Query(ctx, "other")
	var te *arena.TransportError
	require.ErrorAs(t, err, &te)
	var se *arena.StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)

	assert.Equal(t, []string{"SELECT 1;", "BROKEN;", "other"}, fb.Queries())
}

func TestClient_QueryConnectionRefused(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	c := newClient(t, fb)
	fb.Server.Close()

	_, err := c.Query(context.Background(), "SELECT 1;")
	require.Error(t, err)
	assert.True(t, arena.IsTransportError(err))
	assert.False(t, arena.IsBackendError(err))
}

func TestClient_LoginAndSignup(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.AddUser(testutil.FakeUser{LoginID: "u1", Email: "ada@example.com", FullName: "Ada", Password: "pw"})
	c := newClient(t, fb)
	ctx := context.Background()

	u, err := c.Login(ctx, arena.Credentials{LoginID: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FullName)
	assert.Equal(t, "ada@example.com", u.Identity())

	_, err = c.Login(ctx, arena.Credentials{LoginID: "ada@example.com", Password: "nope"})
	require.Error(t, err)
	assert.True(t, arena.IsBackendError(err))
	assert.Equal(t, "Invalid credentials", err.Error())

	u, err = c.Signup(ctx, arena.Registration{FullName: "Grace", Email: "grace@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", u.Email)

	_, err = c.Signup(ctx, arena.Registration{FullName: "Grace", Email: "grace@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestClient_LogActivity(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	c := newClient(t, fb)
	ctx := context.Background()

	err := c.LogActivity(ctx, arena.Activity{
		LoginID:         "ada@example.com",
		SQLQuery:        "[LOGIN]",
		ExecutionResult: arena.ExecutionResult{ActivityType: "login", Success: true},
		Success:         true,
	})
	require.NoError(t, err)

	got := fb.Activities()
	require.Len(t, got, 1)
	assert.Equal(t, "ada@example.com", got[0]["loginId"])
	assert.Equal(t, "[LOGIN]", got[0]["sqlQuery"])

	fb.FailActivity(true)
	err = c.LogActivity(ctx, arena.Activity{LoginID: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, arena.IsTransportError(err))
}

func TestClient_FetchAsset(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.SetAsset("sql_starter_prompts.txt", []byte("prompt one\n"))
	c := newClient(t, fb)
	ctx := context.Background()

	asset, err := c.FetchAsset(ctx, "/downloads/sql_starter_prompts.txt")
	require.NoError(t, err)
	assert.Equal(t, "prompt one\n", string(asset.Body))

	_, err = c.FetchAsset(ctx, "downloads/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch downloads/missing.png")
}

func TestUser_Identity(t *testing.T) {
	var nilUser *arena.User
	assert.Equal(t, "", nilUser.Identity())
	assert.Equal(t, "id-7", (&arena.User{LoginID: "id-7"}).Identity())
	assert.Equal(t, "a@b.c", (&arena.User{LoginID: "id-7", Email: "a@b.c"}).Identity())
	assert.Equal(t, "id-7", (&arena.User{LoginID: "id-7"}).DisplayName())
	assert.Equal(t, "Ada", (&arena.User{LoginID: "id-7", FullName: "Ada"}).DisplayName())
}
