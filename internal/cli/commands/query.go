package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
	Watch bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the practice database",
		Long: `Run a SQL query on the SQL Arena backend and show the result.

SQL is taken from the arguments, from --input, or from piped stdin.
When invoked without any of these on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  sqlarena query "SELECT * FROM dbo.ex_customers LIMIT 10;"

  # Read SQL from a file, re-running on every save
  sqlarena query -i practice.sql --watch

  # Pipe SQL in and get CSV out
  echo "SELECT COUNT(*) AS n FROM dbo.ex_orders;" | sqlarena query -o csv

  # Interactive mode
  sqlarena query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run the --input file whenever it changes")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	if opts.Watch && opts.Input == "" {
		return errors.New("--watch requires --input")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := cmdCtx.RequireUser(); err != nil {
		return err
	}

	// Determine SQL source
	var sqlQuery string

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(cmd.InOrStdin()):
		// Read from stdin (piped input)
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cmdCtx)
	}

	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return errors.New("no SQL to run")
	}

	if err := executeAndRender(cmd.Context(), cmdCtx, sqlQuery); err != nil {
		return err
	}
	if opts.Watch {
		return watchQueryFile(cmd.Context(), cmdCtx, opts.Input)
	}
	return nil
}

// executeAndRender runs sqlQuery through the workspace and renders the
// result. Query failures are part of the result, not errors.
func executeAndRender(ctx context.Context, cmdCtx *CommandContext, sqlQuery string) error {
	res := cmdCtx.Workspace.Execute(ctx, sqlQuery)
	return cmdCtx.Renderer.Result(res)
}

// watchQueryFile re-runs path on every write until ctx is cancelled.
func watchQueryFile(ctx context.Context, cmdCtx *CommandContext, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file rather than write it, so watch the
	// directory and filter by name.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	r := cmdCtx.Renderer
	r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path))

	// Debounce
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != abs {
				continue
			}
			debounce = time.After(100 * time.Millisecond)

		case <-debounce:
			debounce = nil
			content, err := os.ReadFile(abs)
			if err != nil {
				cmdCtx.Logger.Warn("failed to re-read query file", "path", path, "error", err)
				continue
			}
			sqlQuery := strings.TrimSpace(string(content))
			if sqlQuery == "" {
				continue
			}
			cmdCtx.Logger.Debug("file changed, re-running", "file", path)
			r.Println("")
			if err := executeAndRender(ctx, cmdCtx, sqlQuery); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Error("watcher error", "error", err)
		}
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
