// Package arena is a typed client for the SQL Arena backend.
//
// The backend owns authentication, table listing, schema introspection,
// query execution and activity storage. This package only speaks its JSON
// wire format; it keeps no state beyond the HTTP client.
package arena

import "time"

// User is the identity record returned by the backend at login or signup.
type User struct {
	LoginID   string `json:"login_id,omitempty"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	LoginTime int64  `json:"loginTime,omitempty"` // unix milliseconds
}

// Identity returns the id used for activity logging: email first, then login id.
func (u *User) Identity() string {
	if u == nil {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	return u.LoginID
}

// DisplayName returns the full name, falling back to the identity.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Identity()
}

// LoggedInAt returns the login time, or the zero time if unknown.
func (u *User) LoggedInAt() time.Time {
	if u == nil || u.LoginTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(u.LoginTime)
}

// Credentials are the login form fields.
type Credentials struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

// Registration are the signup form fields.
type Registration struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Table is one entry of GET /api/tables.
type Table struct {
	Name string `json:"name"`
}

// Column describes one column of GET /api/schema/:tableName.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
}

// QueryResult is a successful response of POST /api/query.
type QueryResult struct {
	Rows     []Row
	RowCount int
}

// Activity is the body of POST /api/log-activity.
type Activity struct {
	LoginID         string          `json:"loginId"`
	SQLQuery        string          `json:"sqlQuery"`
	ExecutionResult ExecutionResult `json:"executionResult"`
	Success         bool            `json:"success"`
}

// ExecutionResult is the free-form outcome attached to an activity.
type ExecutionResult struct {
	ActivityType    string `json:"activityType"`
	Timestamp       string `json:"timestamp,omitempty"`
	RowCount        *int   `json:"rowCount,omitempty"`
	ExecutionTime   *int64 `json:"executionTime,omitempty"`   // milliseconds
	SessionDuration *int64 `json:"sessionDuration,omitempty"` // seconds
	Error           string `json:"error,omitempty"`
	Success         bool   `json:"success"`
}

// Asset is a downloaded static file.
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
}

type tablesResponse struct {
	Tables []Table `json:"tables"`
}

type schemaResponse struct {
	Success bool     `json:"success"`
	Columns []Column `json:"columns"`
	Error   string   `json:"error"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Success  bool   `json:"success"`
	Data     []Row  `json:"data"`
	RowCount *int   `json:"rowCount"`
	Error    string `json:"error"`
}

type authResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
