package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeColumn is a column served by FakeBackend.
type FakeColumn struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
}

// FakeUser is an account known to FakeBackend.
type FakeUser struct {
	LoginID  string
	Email    string
	FullName string
	Password string
}

// QueryFunc answers POST /api/query. It returns the status code and body.
type QueryFunc func(sql string) (int, any)

// FakeBackend is an in-process SQL Arena backend for tests.
type FakeBackend struct {
	Server *httptest.Server

	mu            sync.Mutex
	tables        []string
	schemas       map[string][]FakeColumn
	users         []FakeUser
	assets        map[string][]byte
	queryFunc     QueryFunc
	activityFail  bool
	schemaCalls   map[string]int
	queries       []string
	activities    []map[string]any
	activitySeen  chan struct{}
	schemaHandler http.HandlerFunc
}

// NewFakeBackend starts a fake backend that is closed with the test.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		schemas:      make(map[string][]FakeColumn),
		assets:       make(map[string][]byte),
		schemaCalls:  make(map[string]int),
		activitySeen: make(chan struct{}, 1024),
	}
	fb.queryFunc = func(string) (int, any) {
		return http.StatusOK, map[string]any{"success": true, "data": []any{}, "rowCount": 0}
	}

	r := chi.NewRouter()
	r.Get("/api/tables", fb.handleTables)
	r.Get("/api/schema/{table}", fb.handleSchema)
	r.Post("/api/query", fb.handleQuery)
	r.Post("/api/log-activity", fb.handleActivity)
	r.Post("/api/auth/login", fb.handleLogin)
	r.Post("/api/auth/signup", fb.handleSignup)
	r.Get("/downloads/{name}", fb.handleAsset)

	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL of the fake backend.
func (fb *FakeBackend) URL() string { return fb.Server.URL }

// AddTable registers a table and its columns.
func (fb *FakeBackend) AddTable(name string, cols ...FakeColumn) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.tables = append(fb.tables, name)
	if len(cols) > 0 {
		fb.schemas[name] = cols
	}
}

// AddUser registers an account for login.
func (fb *FakeBackend) AddUser(u FakeUser) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.users = append(fb.users, u)
}

// SetAsset serves body at /downloads/<name>.
func (fb *FakeBackend) SetAsset(name string, body []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.assets[name] = body
}

// OnQuery replaces the query handler.
func (fb *FakeBackend) OnQuery(fn QueryFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.queryFunc = fn
}

// OnSchema replaces the schema handler.
func (fb *FakeBackend) OnSchema(h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.schemaHandler = h
}

// FailActivity makes POST /api/log-activity answer 500.
func (fb *FakeBackend) FailActivity(fail bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.activityFail = fail
}

// SchemaCalls returns how many times the schema of table was requested.
func (fb *FakeBackend) SchemaCalls(table string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.schemaCalls[table]
}

// Queries returns every SQL text received.
func (fb *FakeBackend) Queries() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.queries...)
}

// Activities returns every activity body received.
func (fb *FakeBackend) Activities() []map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]map[string]any(nil), fb.activities...)
}

// ActivitySeen is signalled once per received activity post.
func (fb *FakeBackend) ActivitySeen() <-chan struct{} { return fb.activitySeen }

func (fb *FakeBackend) handleTables(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	tables := make([]map[string]string, 0, len(fb.tables))
	for _, name := range fb.tables {
		tables = append(tables, map[string]string{"name": name})
	}
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (fb *FakeBackend) handleSchema(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	fb.mu.Lock()
	fb.schemaCalls[table]++
	custom := fb.schemaHandler
	cols, ok := fb.schemas[table]
	fb.mu.Unlock()

	if custom != nil {
		custom(w, r)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Table not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "columns": cols})
}

func (fb *FakeBackend) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SQL string `json:"sql"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}

	fb.mu.Lock()
	fb.queries = append(fb.queries, body.SQL)
	fn := fb.queryFunc
	fb.mu.Unlock()

	status, resp := fn(body.SQL)
	if raw, ok := resp.(string); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}
	writeJSON(w, status, resp)
}

func (fb *FakeBackend) handleActivity(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	fail := fb.activityFail
	if !fail {
		fb.activities = append(fb.activities, body)
	}
	fb.mu.Unlock()

	select {
	case fb.activitySeen <- struct{}{}:
	default:
	}

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "log store down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (fb *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LoginID  string `json:"loginId"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, u := range fb.users {
		if (u.LoginID == body.LoginID || u.Email == body.LoginID) && u.Password == body.Password {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": userJSON(u)})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid credentials"})
}

func (fb *FakeBackend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, u := range fb.users {
		if u.Email == body.Email {
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "error": "Email already registered"})
			return
		}
	}
	u := FakeUser{Email: body.Email, FullName: body.FullName, Password: body.Password}
	fb.users = append(fb.users, u)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": userJSON(u)})
}

func (fb *FakeBackend) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	fb.mu.Lock()
	body, ok := fb.assets[name]
	fb.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(body)
}

func userJSON(u FakeUser) map[string]any {
	out := map[string]any{"full_name": u.FullName}
	if u.LoginID != "" {
		out["login_id"] = u.LoginID
	}
	if u.Email != "" {
		out["email"] = u.Email
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
