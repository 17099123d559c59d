// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/amit-mskl/sql-playground/internal/testutil"
)

// Env is an isolated CLI environment: a fake backend, an empty working
// directory and SQLARENA_* variables pointing at both.
type Env struct {
	Backend     *testutil.FakeBackend
	Dir         string
	StatePath   string
	DownloadDir string
}

// SetupTestEnv creates an Env seeded with the practice tables and one user
// (ada@example.com / secret).
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	fb := testutil.NewFakeBackend(t)
	fb.AddTable("dbo.ex_customers",
		testutil.FakeColumn{Name: "customer_id", Type: "INTEGER", IsPrimaryKey: true},
		testutil.FakeColumn{Name: "customer_name", Type: "TEXT"},
		testutil.FakeColumn{Name: "city", Type: "TEXT", Nullable: true},
	)
	fb.AddTable("sqlite_sequence",
		testutil.FakeColumn{Name: "name", Nullable: true},
		testutil.FakeColumn{Name: "seq", Nullable: true},
	)
	fb.AddTable("dbo.ex_orders",
		testutil.FakeColumn{Name: "order_id", Type: "INTEGER", IsPrimaryKey: true},
		testutil.FakeColumn{Name: "customer_id", Type: "INTEGER"},
	)
	fb.AddUser(testutil.FakeUser{LoginID: "u-1", Email: "ada@example.com", FullName: "Ada Lovelace", Password: "secret"})
	fb.SetAsset("globalmart-schema.png", []byte("\x89PNG"))
	fb.SetAsset("sql_starter_prompts.txt", []byte("1. List every customer in London."))

	env := &Env{
		Backend:     fb,
		Dir:         dir,
		StatePath:   filepath.Join(dir, "state", "state.db"),
		DownloadDir: filepath.Join(dir, "downloads"),
	}
	t.Setenv("SQLARENA_BACKEND_URL", fb.URL())
	t.Setenv("SQLARENA_STATE_PATH", env.StatePath)
	t.Setenv("SQLARENA_DOWNLOAD_DIR", env.DownloadDir)
	t.Setenv("SQLARENA_OUTPUT", "markdown")
	return env
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// CountLines returns the number of lines of s containing substr.
func CountLines(s, substr string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// WriteFile writes body to name under dir and returns the path.
func WriteFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}
