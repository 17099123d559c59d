package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray
// sqlarena.yaml is picked up, and points HOME at it.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("backend-url", "", "")
	flags.String("state", "", "")
	flags.StringP("output", "o", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.Duration("http-timeout", 0, "")
	return flags
}

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	home := chdirTemp(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultBackendURL, cfg.ResolvedAssetURL())
	assert.Equal(t, filepath.Join(home, ".sqlarena", "state.db"), cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, DefaultQuery, cfg.DefaultQuery)
	assert.Equal(t, []string{"sqlite_sequence"}, cfg.ExcludeTables)
	assert.True(t, cfg.Activity.Enabled)
	assert.Equal(t, 0, cfg.Activity.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Activity.FlushTimeout)
	assert.Equal(t, DefaultDiagramPath, cfg.Assets.Diagram)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileDiscovery(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "project file",
			files: map[string]string{"sqlarena.yaml": "backend_url: http://project.test\n"},
			want:  "http://project.test",
		},
		{
			name:  "hidden project file",
			files: map[string]string{".sqlarena.yaml": "backend_url: http://hidden.test\n"},
			want:  "http://hidden.test",
		},
		{
			name:  "home file",
			files: map[string]string{".sqlarena/config.yaml": "backend_url: http://home.test\n"},
			want:  "http://home.test",
		},
		{
			name: "project wins over home",
			files: map[string]string{
				"sqlarena.yaml":         "backend_url: http://project.test\n",
				".sqlarena/config.yaml": "backend_url: http://home.test\n",
			},
			want: "http://project.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := chdirTemp(t)
			for name, body := range tt.files {
				writeConfig(t, dir, name, body)
			}

			cfg, err := LoadConfig("", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.BackendURL)
			assert.NotEmpty(t, GetConfigFileUsed())
		})
	}
}

func TestLoadConfig_NestedFileValues(t *testing.T) {
	ResetConfig()
	dir := chdirTemp(t)
	p := writeConfig(t, dir, "custom.yaml", `
backend_url: http://localhost:3001/
asset_url: http://cdn.test
http_timeout: 5s
exclude_tables: [sqlite_sequence, audit_log]
activity:
  max_retries: 2
  retry_interval: 1s
assets:
  prompts: /static/prompts.txt
`)

	cfg, err := LoadConfig(p, nil)
	require.NoError(t, err)
	assert.Equal(t, p, GetConfigFileUsed())
	assert.Equal(t, "http://localhost:3001", cfg.BackendURL)
	assert.Equal(t, "http://cdn.test", cfg.ResolvedAssetURL())
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"sqlite_sequence", "audit_log"}, cfg.ExcludeTables)
	assert.Equal(t, 2, cfg.Activity.MaxRetries)
	assert.Equal(t, time.Second, cfg.Activity.RetryInterval)
	assert.Equal(t, "/static/prompts.txt", cfg.Assets.Prompts)
	assert.Equal(t, DefaultDiagramPath, cfg.Assets.Diagram)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	chdirTemp(t)

	_, err := LoadConfig("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	dir := chdirTemp(t)
	writeConfig(t, dir, "sqlarena.yaml", "backend_url: http://file.test\noutput: csv\nlog_level: info\n")

	t.Setenv("SQLARENA_BACKEND_URL", "http://env.test")
	t.Setenv("SQLARENA_LOG_LEVEL", "debug")
	t.Setenv("SQLARENA_ACTIVITY__MAX_RETRIES", "4")
	t.Setenv("SQLARENA_EXCLUDE_TABLES", "a, b")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--backend-url", "http://flag.test", "--state", "local.db", "--http-timeout", "0s"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "http://flag.test", cfg.BackendURL, "flag beats env")
	assert.Equal(t, "debug", cfg.LogLevel, "env beats file")
	assert.Equal(t, "csv", cfg.OutputFormat, "file beats default")
	assert.Equal(t, "local.db", cfg.StatePath, "--state maps to state_path")
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.Equal(t, 4, cfg.Activity.MaxRetries)
	assert.Equal(t, []string{"a", "b"}, cfg.ExcludeTables)
}

func TestLoadConfig_UnsetFlagKeepsEnv(t *testing.T) {
	ResetConfig()
	chdirTemp(t)
	t.Setenv("SQLARENA_OUTPUT", "json")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad scheme", mutate: func(c *Config) { c.BackendURL = "ftp://x" }, errSubstr: "backend_url"},
		{name: "no host", mutate: func(c *Config) { c.BackendURL = "http://" }, errSubstr: "backend_url"},
		{name: "bad asset url", mutate: func(c *Config) { c.AssetURL = "nope" }, errSubstr: "asset_url"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "html" }, errSubstr: "invalid output"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, errSubstr: "log_level"},
		{name: "bad format", mutate: func(c *Config) { c.LogFormat = "xml" }, errSubstr: "log_format"},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTPTimeout = -time.Second }, errSubstr: "http_timeout"},
		{name: "zero buffer", mutate: func(c *Config) { c.Activity.Buffer = 0 }, errSubstr: "activity.buffer"},
		{name: "negative retries", mutate: func(c *Config) { c.Activity.MaxRetries = -1 }, errSubstr: "max_retries"},
		{name: "no state path", mutate: func(c *Config) { c.StatePath = "" }, errSubstr: "state_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_InvalidValueRejected(t *testing.T) {
	ResetConfig()
	chdirTemp(t)
	t.Setenv("SQLARENA_OUTPUT", "html")

	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Nil(t, GetCurrentConfig())
}

func TestNewLogger(t *testing.T) {
	var buf strings.Builder

	cfg := Default()
	cfg.LogFormat = "json"
	logger := NewLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.Verbose = true
	cfg.LogFormat = "text"
	NewLogger(cfg, &buf).Debug("debugging")
	assert.Contains(t, buf.String(), "msg=debugging")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	l := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), l)
	assert.Same(t, l, GetLogger(ctx))
}
