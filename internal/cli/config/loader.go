package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix prefixes every environment override. A double underscore
// separates nesting levels: SQLARENA_ACTIVITY__MAX_RETRIES.
const envPrefix = "SQLARENA_"

// loggerKey is used to store logger in context.
type loggerKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configCandidates lists the implicit config locations in search order.
func configCandidates() []string {
	out := []string{"sqlarena.yaml", ".sqlarena.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".sqlarena", "config.yaml"))
	}
	return out
}

// findConfigFile finds the config file to use.
// Priority: explicit path > sqlarena.yaml > .sqlarena.yaml > ~/.sqlarena/config.yaml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range configCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func defaults() map[string]any {
	return map[string]any{
		"backend_url":             DefaultBackendURL,
		"asset_url":               "",
		"state_path":              DefaultStateFile,
		"download_dir":            DefaultDownloadDir,
		"output":                  DefaultOutput,
		"verbose":                 false,
		"log_level":               DefaultLogLevel,
		"log_format":              DefaultLogFormat,
		"http_timeout":            DefaultHTTPTimeout.String(),
		"default_query":           DefaultQuery,
		"exclude_tables":          DefaultExcludeTables,
		"activity.enabled":        true,
		"activity.buffer":         DefaultBuffer,
		"activity.max_retries":    0,
		"activity.retry_interval": DefaultRetryInterval.String(),
		"activity.flush_timeout":  DefaultFlushTimeout.String(),
		"assets.diagram":          DefaultDiagramPath,
		"assets.prompts":          DefaultPromptsPath,
	}
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (SQLARENA_ prefix)
	// Transform: SQLARENA_ACTIVITY__MAX_RETRIES -> activity.max_retries
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// --state is short for state_path
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	cfg, err := decode(k)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = cfg

	return cfg, nil
}

func decode(src *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := src.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.StatePath = expandHome(cfg.StatePath)
	cfg.DownloadDir = expandHome(cfg.DownloadDir)
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.AssetURL = strings.TrimRight(cfg.AssetURL, "/")
	cfg.ExcludeTables = trimAll(cfg.ExcludeTables)
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// Default returns a configuration built from defaults only.
func Default() *Config {
	src := koanf.New(".")
	_ = src.Load(confmap.Provider(defaults(), "."), nil)
	cfg, err := decode(src)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the process logger from cfg. Verbose forces debug.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return strings.TrimPrefix(strings.TrimPrefix(p, "~"), "/")
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
