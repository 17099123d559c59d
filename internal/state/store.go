// Package state is the client's local persistence: a SQLite file that plays
// the role of browser local storage and keeps the activity journal.
package state

import (
	"context"
	"time"

	"github.com/amit-mskl/sql-playground/internal/activity"
)

// StateStore is the local persistence contract.
type StateStore interface {
	Open(path string) error
	Close() error
	Migrate() error

	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error

	AppendActivity(ctx context.Context, rec activity.Record) error
	UpdateActivity(ctx context.Context, id string, status activity.Status, attempts int, lastErr string) error
	RecentActivity(ctx context.Context, loginID string, limit int) ([]ActivityEntry, error)
}

// ActivityEntry is one journaled activity.
type ActivityEntry struct {
	ID        string          `json:"id"`
	Type      activity.Type   `json:"type"`
	LoginID   string          `json:"login_id"`
	SQLQuery  string          `json:"sql_query,omitempty"`
	Success   bool            `json:"success"`
	Status    activity.Status `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	Payload   string          `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var (
	_ StateStore       = (*SQLiteStore)(nil)
	_ activity.Journal = (*SQLiteStore)(nil)
)
