package workspace

import (
	"context"
	"fmt"
	"slices"

	"github.com/amit-mskl/sql-playground/internal/arena"
)

// ListTables fetches the table names, dropping excluded ones.
func (w *Workspace) ListTables(ctx context.Context) error {
	epoch := w.currentEpoch()

	tables, err := w.backend.ListTables(ctx)
	if err != nil {
		w.logger.Warn("failed to list tables", "error", err)
		return fmt.Errorf("failed to list tables: %w", err)
	}

	names := make([]string, 0, len(tables))
	for _, t := range tables {
		if t.Name == "" || slices.Contains(w.opts.ExcludeTables, t.Name) {
			continue
		}
		names = append(names, t.Name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.logger.Debug("discarding table list from previous session")
		return nil
	}
	w.tables = names
	w.tablesLoaded = true
	return nil
}

// Toggle flips the expanded state of name. needsFetch is true exactly once
// per table per session: on the first expansion. The caller then calls
// FetchSchema.
func (w *Workspace) Toggle(name string) (expanded, needsFetch bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	expanded = !w.expanded[name]
	w.expanded[name] = expanded
	if expanded && !w.requested[name] {
		w.requested[name] = true
		_, cached := w.schemas[name]
		needsFetch = !cached
	}
	return expanded, needsFetch
}

// ToggleTable is Toggle followed by the schema fetch it asks for.
func (w *Workspace) ToggleTable(ctx context.Context, name string) (bool, error) {
	expanded, needsFetch := w.Toggle(name)
	if !needsFetch {
		return expanded, nil
	}
	return expanded, w.FetchSchema(ctx, name)
}

// FetchSchema loads and stores the column list of name. A failure is
// logged and leaves the schema absent.
func (w *Workspace) FetchSchema(ctx context.Context, name string) error {
	_, err := w.loadSchema(ctx, name)
	if err != nil {
		w.logger.Warn("failed to fetch schema", "table", name, "error", err)
	}
	return err
}

// Schema returns the columns of name, fetching them when not cached.
// Concurrent callers share one request.
func (w *Workspace) Schema(ctx context.Context, name string) ([]arena.Column, error) {
	w.mu.Lock()
	cols, ok := w.schemas[name]
	w.mu.Unlock()
	if ok {
		return slices.Clone(cols), nil
	}

	cols, err := w.loadSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(cols), nil
}

// Expanded reports whether name is expanded in the sidebar.
func (w *Workspace) Expanded(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expanded[name]
}

func (w *Workspace) loadSchema(ctx context.Context, name string) ([]arena.Column, error) {
	epoch := w.currentEpoch()
	key := fmt.Sprintf("%d/%s", epoch, name)

	v, err, _ := w.schemaGroup.Do(key, func() (any, error) {
		return w.backend.FetchSchema(ctx, name)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema for %s: %w", name, err)
	}
	cols := v.([]arena.Column)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch == epoch {
		w.schemas[name] = cols
	}
	return cols, nil
}

func (w *Workspace) currentEpoch() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch
}
