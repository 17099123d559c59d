package workspace

import (
	"context"
	"errors"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
)

// Run executes the editor text.
func (w *Workspace) Run(ctx context.Context) Result {
	return w.run(ctx, w.Query())
}

// Execute replaces the editor text with sql and runs it.
func (w *Workspace) Execute(ctx context.Context, sql string) Result {
	w.SetQuery(sql)
	return w.run(ctx, sql)
}

// run posts sql and applies the outcome unless a newer run was applied
// first or the session ended meanwhile. The returned Result is always the
// outcome of this call.
func (w *Workspace) run(ctx context.Context, sql string) Result {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	epoch := w.epoch
	identity := w.identityLocked()
	w.mu.Unlock()

	start := w.now()
	qr, err := w.backend.Query(ctx, sql)
	elapsed := w.now().Sub(start)

	res := Result{SQL: sql, Elapsed: elapsed, Seq: seq}
	var rowCount *int
	var errMsg string
	if err != nil {
		res.Kind = ResultError
		res.Message, errMsg = classify(err)
	} else {
		res.Kind = ResultRows
		res.Rows = qr.Rows
		res.RowCount = qr.RowCount
		res.Columns = columnsOf(qr.Rows)
		rowCount = &qr.RowCount
	}

	w.sink.Enqueue(activity.Query(identity, sql, elapsed, rowCount, errMsg))

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.epoch != epoch:
		w.logger.Debug("discarding query result from previous session", "seq", seq)
	case seq <= w.result.Seq:
		w.logger.Debug("discarding stale query result", "seq", seq, "applied", w.result.Seq)
	default:
		w.result = res
	}
	return res
}

// classify returns the display message and the raw message logged with
// the activity.
func classify(err error) (display, raw string) {
	var be *arena.BackendError
	if errors.As(err, &be) {
		return "Error: " + be.Error(), be.Error()
	}
	return "Connection error: " + err.Error(), err.Error()
}
