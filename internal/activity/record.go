// Package activity delivers best-effort audit records to the backend.
//
// Callers enqueue records and move on; a single worker posts them in FIFO
// order. Delivery failures are logged and never reach the caller.
package activity

import (
	"strings"
	"time"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/google/uuid"
)

// Type names a user action.
type Type string

// Activity types understood by the backend.
const (
	TypeLogin           Type = "login"
	TypeSignup          Type = "signup"
	TypeLogout          Type = "logout"
	TypeSQLQuery        Type = "sql_query"
	TypeDownloadDiagram Type = "download_dbml"
	TypeDownloadPrompts Type = "download_prompts"
)

// Status is the journal state of a record.
type Status string

// Journal states.
const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusDropped   Status = "dropped"
)

// Record is one activity waiting for delivery.
type Record struct {
	ID        string
	Type      Type
	LoginID   string
	SQLQuery  string
	Result    arena.ExecutionResult
	Success   bool
	CreatedAt time.Time
}

// New creates a record stamped with a fresh id and the current time.
func New(typ Type, loginID string, success bool) Record {
	now := time.Now().UTC()
	return Record{
		ID:        uuid.NewString(),
		Type:      typ,
		LoginID:   loginID,
		Success:   success,
		CreatedAt: now,
		Result: arena.ExecutionResult{
			ActivityType: string(typ),
			Timestamp:    now.Format(time.RFC3339Nano),
			Success:      success,
		},
	}
}

// Query creates a sql_query record for one run.
func Query(loginID, sql string, elapsed time.Duration, rowCount *int, errMsg string) Record {
	rec := New(TypeSQLQuery, loginID, errMsg == "")
	rec.SQLQuery = sql
	ms := elapsed.Milliseconds()
	rec.Result.ExecutionTime = &ms
	rec.Result.RowCount = rowCount
	rec.Result.Error = errMsg
	return rec
}

// WithSessionDuration attaches the session length in whole seconds.
func (r Record) WithSessionDuration(d time.Duration) Record {
	secs := int64(d.Round(time.Second) / time.Second)
	r.Result.SessionDuration = &secs
	return r
}

// Payload returns the wire body. Records without SQL carry a [TYPE]
// placeholder, which is what the backend expects for non-query actions.
func (r Record) Payload() arena.Activity {
	sql := r.SQLQuery
	if sql == "" {
		sql = "[" + strings.ToUpper(string(r.Type)) + "]"
	}
	return arena.Activity{
		LoginID:         r.LoginID,
		SQLQuery:        sql,
		ExecutionResult: r.Result,
		Success:         r.Success,
	}
}
