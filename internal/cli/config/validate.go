package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
)

// OutputModes are the accepted values of the output key.
var OutputModes = []string{"auto", "text", "markdown", "json", "csv", "yaml"}

// LogFormats are the accepted values of the log_format key.
var LogFormats = []string{"text", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validateURL("backend_url", c.BackendURL); err != nil {
		return err
	}
	if c.AssetURL != "" {
		if err := validateURL("asset_url", c.AssetURL); err != nil {
			return err
		}
	}
	if !slices.Contains(OutputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (want one of %s)", c.OutputFormat, strings.Join(OutputModes, ", "))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative")
	}
	if c.Activity.Buffer <= 0 {
		return fmt.Errorf("activity.buffer must be positive")
	}
	if c.Activity.MaxRetries < 0 {
		return fmt.Errorf("activity.max_retries must not be negative")
	}
	if c.Activity.FlushTimeout < 0 || c.Activity.RetryInterval < 0 {
		return fmt.Errorf("activity intervals must not be negative")
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", s)
	}
	return lvl, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an http(s) URL", key, raw)
	}
	return nil
}
