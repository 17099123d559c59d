package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amit-mskl/sql-playground/internal/activity"

	// sqlite driver for the local store.
	_ "modernc.org/sqlite"
)

// SQLiteStore implements StateStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewSQLiteStoreWithDB wraps an already opened database.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, path: "external"}
}

// Open opens a connection to the SQLite database, creating the parent
// directory when needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// --- local storage ---

// GetItem returns the value stored under key.
func (s *SQLiteStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s.db == nil {
		return "", false, fmt.Errorf("database not opened")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *SQLiteStore) SetItem(ctx context.Context, key, value string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *SQLiteStore) RemoveItem(ctx context.Context, key string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// --- activity journal ---

// AppendActivity journals rec as pending.
func (s *SQLiteStore) AppendActivity(ctx context.Context, rec activity.Record) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	payload, err := json.Marshal(rec.Payload())
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_journal (id, type, login_id, sql_query, success, status, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.Type), rec.LoginID, rec.SQLQuery, boolToInt(rec.Success),
		string(activity.StatusPending), string(payload), created.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to journal activity: %w", err)
	}
	return nil
}

// UpdateActivity records the delivery outcome of a journaled activity.
func (s *SQLiteStore) UpdateActivity(ctx context.Context, id string, status activity.Status, attempts int, lastErr string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE activity_journal SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, string(status), attempts, lastErr, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("activity not found: %s", id)
	}
	return nil
}

// RecentActivity returns the newest journaled activities, optionally
// filtered by login id. A limit <= 0 returns everything.
func (s *SQLiteStore) RecentActivity(ctx context.Context, loginID string, limit int) ([]ActivityEntry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := `SELECT id, type, login_id, sql_query, success, status, attempts, last_error, payload, created_at, updated_at
		FROM activity_journal`
	var args []any
	if loginID != "" {
		query += ` WHERE login_id = ?`
		args = append(args, loginID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []ActivityEntry
	for rows.Next() {
		var (
			e                  ActivityEntry
			typ, status        string
			success            int
			created, updatedMs int64
		)
		if err := rows.Scan(&e.ID, &typ, &e.LoginID, &e.SQLQuery, &success, &status,
			&e.Attempts, &e.LastError, &e.Payload, &created, &updatedMs); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.Type = activity.Type(typ)
		e.Status = activity.Status(status)
		e.Success = success == 1
		e.CreatedAt = time.UnixMilli(created).UTC()
		e.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
