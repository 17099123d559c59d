// Package workspace holds the signed-in application state: the table
// sidebar, the schema cache, the query text and the last result. All
// mutation goes through Workspace methods; readers take a Snapshot.
package workspace

import (
	"time"

	"github.com/amit-mskl/sql-playground/internal/arena"
)

// DefaultQuery is the editor text of a fresh session.
const DefaultQuery = "SELECT * FROM dbo.ex_customers LIMIT 10;"

const (
	MsgNoQuery       = "No query executed yet"
	MsgNoRows        = "No rows found"
	MsgLoadingSchema = "Loading schema..."
)

// ResultKind discriminates Result.
type ResultKind int

const (
	ResultPending ResultKind = iota
	ResultRows
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultRows:
		return "rows"
	case ResultError:
		return "error"
	default:
		return "pending"
	}
}

// Result is the outcome of the most recent applied run.
type Result struct {
	Kind ResultKind
	// Columns are the keys of the first row, in response order.
	Columns  []string
	Rows     []arena.Row
	RowCount int
	// Message is the display text of an error result, already prefixed
	// with "Error: " or "Connection error: ".
	Message string
	SQL     string
	Elapsed time.Duration
	Seq     uint64
}

// PendingResult is the result shown before any run.
func PendingResult() Result {
	return Result{Kind: ResultPending}
}

// Empty reports whether the result has nothing tabular to show.
func (r Result) Empty() bool {
	return r.Kind != ResultRows || len(r.Rows) == 0
}

// Text returns the one-line message for non-tabular results: the pending
// placeholder, the empty-rows notice or the error message.
func (r Result) Text() string {
	switch r.Kind {
	case ResultError:
		return r.Message
	case ResultRows:
		if len(r.Rows) == 0 {
			return MsgNoRows
		}
		return ""
	default:
		return MsgNoQuery
	}
}

// TableView is one sidebar entry.
type TableView struct {
	Name     string
	Expanded bool
	// Columns is nil until the schema has been fetched.
	Columns []arena.Column
}

// Loaded reports whether the schema is known.
func (t TableView) Loaded() bool { return t.Columns != nil }

// State is a copy of the workspace at one point in time.
type State struct {
	User         *arena.User
	Tables       []TableView
	TablesLoaded bool
	Query        string
	Result       Result
	Epoch        uint64
}

// Table returns the entry for name.
func (s State) Table(name string) (TableView, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableView{}, false
}

func columnsOf(rows []arena.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0].Keys()
}
