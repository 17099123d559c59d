package tui

import "github.com/amit-mskl/sql-playground/internal/workspace"

// TablesLoadedMsg is sent when the table list request finished.
type TablesLoadedMsg struct {
	Error error
}

// SchemaLoadedMsg is sent when a schema request finished.
type SchemaLoadedMsg struct {
	Table string
	Error error
}

// ResultMsg carries the outcome of a run.
type ResultMsg struct {
	Result workspace.Result
}

// DownloadedMsg is sent when a download finished.
type DownloadedMsg struct {
	Path  string
	Error error
}

// LoggedOutMsg is sent once the session has ended.
type LoggedOutMsg struct {
	Error error
}
