package workspace

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
	"golang.org/x/sync/singleflight"
)

// Backend is the subset of the arena client the workspace calls.
type Backend interface {
	ListTables(ctx context.Context) ([]arena.Table, error)
	FetchSchema(ctx context.Context, table string) ([]arena.Column, error)
	Query(ctx context.Context, sql string) (*arena.QueryResult, error)
}

// Options configure a Workspace.
type Options struct {
	DefaultQuery  string
	ExcludeTables []string
}

// Workspace is the state machine behind every surface.
type Workspace struct {
	backend Backend
	sink    activity.Sink
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	schemaGroup singleflight.Group

	mu           sync.Mutex
	user         *arena.User
	epoch        uint64
	tables       []string
	tablesLoaded bool
	expanded     map[string]bool
	requested    map[string]bool
	schemas      map[string][]arena.Column
	query        string
	result       Result
	seq          uint64
}

// New creates a logged-out workspace. sink may be nil.
func New(backend Backend, sink activity.Sink, opts Options, logger *slog.Logger) *Workspace {
	if sink == nil {
		sink = activity.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.DefaultQuery == "" {
		opts.DefaultQuery = DefaultQuery
	}
	w := &Workspace{
		backend: backend,
		sink:    sink,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
	w.resetLocked()
	return w
}

// Activate binds the workspace to u and loads the table list once per
// session. A listing failure is logged and leaves the list empty.
func (w *Workspace) Activate(ctx context.Context, u *arena.User) error {
	w.Bind(u)

	w.mu.Lock()
	loaded := w.tablesLoaded
	w.mu.Unlock()

	if loaded {
		return nil
	}
	return w.ListTables(ctx)
}

// Bind sets the user activity is attributed to without loading tables.
func (w *Workspace) Bind(u *arena.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u == nil {
		w.user = nil
		return
	}
	cp := *u
	w.user = &cp
}

// User returns the bound user, or nil.
func (w *Workspace) User() *arena.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.user == nil {
		return nil
	}
	cp := *w.user
	return &cp
}

// Logout forgets tables and schemas and restores the default query and
// result. Responses still in flight from the old session are discarded.
func (w *Workspace) Logout() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	w.resetLocked()
}

func (w *Workspace) resetLocked() {
	w.user = nil
	w.tables = nil
	w.tablesLoaded = false
	w.expanded = make(map[string]bool)
	w.requested = make(map[string]bool)
	w.schemas = make(map[string][]arena.Column)
	w.query = w.opts.DefaultQuery
	w.result = PendingResult()
}

// Snapshot returns a deep copy of the current state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		TablesLoaded: w.tablesLoaded,
		Query:        w.query,
		Result:       w.result,
		Epoch:        w.epoch,
	}
	if w.user != nil {
		cp := *w.user
		st.User = &cp
	}
	st.Result.Columns = slices.Clone(w.result.Columns)
	st.Result.Rows = slices.Clone(w.result.Rows)

	st.Tables = make([]TableView, 0, len(w.tables))
	for _, name := range w.tables {
		st.Tables = append(st.Tables, TableView{
			Name:     name,
			Expanded: w.expanded[name],
			Columns:  slices.Clone(w.schemas[name]),
		})
	}
	return st
}

func (w *Workspace) identityLocked() string {
	return w.user.Identity()
}
