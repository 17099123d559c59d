// Package config loads sqlarena settings from defaults, a YAML file,
// SQLARENA_* environment variables and command-line flags.
package config

import (
	"time"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/workspace"
)

// Config holds all CLI configuration options.
type Config struct {
	BackendURL    string         `koanf:"backend_url"`
	AssetURL      string         `koanf:"asset_url"` // defaults to BackendURL
	StatePath     string         `koanf:"state_path"`
	DownloadDir   string         `koanf:"download_dir"`
	OutputFormat  string         `koanf:"output"`
	Verbose       bool           `koanf:"verbose"`
	LogLevel      string         `koanf:"log_level"`
	LogFormat     string         `koanf:"log_format"`
	HTTPTimeout   time.Duration  `koanf:"http_timeout"`
	DefaultQuery  string         `koanf:"default_query"`
	ExcludeTables []string       `koanf:"exclude_tables"`
	Activity      ActivityConfig `koanf:"activity"`
	Assets        AssetsConfig   `koanf:"assets"`
}

// ActivityConfig tunes the activity log queue.
type ActivityConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Buffer        int           `koanf:"buffer"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	FlushTimeout  time.Duration `koanf:"flush_timeout"`
}

// AssetsConfig holds the download paths relative to the asset URL.
type AssetsConfig struct {
	Diagram string `koanf:"diagram"`
	Prompts string `koanf:"prompts"`
}

// Default configuration values.
const (
	DefaultBackendURL    = arena.DefaultBaseURL
	DefaultStateFile     = "~/.sqlarena/state.db"
	DefaultDownloadDir   = "."
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel      = "warn"
	DefaultLogFormat     = "text"
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultQuery         = workspace.DefaultQuery
	DefaultBuffer        = 64
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultFlushTimeout  = 3 * time.Second
	DefaultDiagramPath   = "/downloads/globalmart-schema.png"
	DefaultPromptsPath   = "/downloads/sql_starter_prompts.txt"
)

// DefaultExcludeTables are internal tables hidden from the sidebar.
var DefaultExcludeTables = []string{"sqlite_sequence"}

// ResolvedAssetURL returns AssetURL, falling back to BackendURL.
func (c *Config) ResolvedAssetURL() string {
	if c.AssetURL != "" {
		return c.AssetURL
	}
	return c.BackendURL
}
