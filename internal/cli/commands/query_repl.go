package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	replPrompt      = "sqlarena> "
	replContinue    = "     ...> "
	replHistoryFile = "query_history"
)

// replAction tells the loop what to do after a dot-command.
type replAction int

const (
	replContinueLoop replAction = iota
	replQuit
)

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext) error {
	ctx := cmd.Context()

	// The completer needs the table list.
	u, err := cmdCtx.Activate(ctx)
	if err != nil {
		return err
	}

	// Setup history file next to the state database
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), replHistoryFile)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(cmdCtx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "SQL Arena (%s, signed in as %s)\n", cmdCtx.Client.BaseURL(), u.DisplayName())
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	return replLoop(ctx, cmd, cmdCtx, rl)
}

// lineReader is the part of readline the loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

func replLoop(ctx context.Context, cmd *cobra.Command, cmdCtx *CommandContext, rl lineReader) error {
	var multiLineBuffer strings.Builder
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle dot-commands
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if handleDotCommand(ctx, cmd, cmdCtx, line) == replQuit {
				return nil
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString("\n")
			rl.SetPrompt(replContinue)
			continue
		}
		rl.SetPrompt(replPrompt)

		query := multiLineBuffer.String()
		multiLineBuffer.Reset()

		if err := executeAndRender(ctx, cmdCtx, query); err != nil {
			printErr(cmd, err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}
}

func handleDotCommand(ctx context.Context, cmd *cobra.Command, cmdCtx *CommandContext, line string) replAction {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}

	r := cmdCtx.Renderer
	ws := cmdCtx.Workspace

	switch command {
	case ".quit", ".exit":
		return replQuit

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".tables":
		if err := r.Tables(ws.Snapshot().Tables); err != nil {
			printErr(cmd, err)
		}

	case ".expand":
		if arg == "" {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .expand <table>")
			break
		}
		_, _ = ws.ToggleTable(ctx, arg)
		if err := r.Tables(ws.Snapshot().Tables); err != nil {
			printErr(cmd, err)
		}

	case ".schema":
		if arg == "" {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .schema <table>")
			break
		}
		cols, err := ws.Schema(ctx, arg)
		if err != nil {
			printErr(cmd, err)
			break
		}
		if err := r.Schema(arg, cols); err != nil {
			printErr(cmd, err)
		}

	case ".generate":
		if arg == "" {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .generate <table>")
			break
		}
		r.Println(ws.GenerateQuery(arg))
		r.Muted("Type .run to execute it")

	case ".show":
		r.Println(ws.Query())

	case ".run":
		if err := r.Result(ws.Run(ctx)); err != nil {
			printErr(cmd, err)
		}

	case ".download":
		if err := downloadAssets(ctx, cmdCtx, arg); err != nil {
			printErr(cmd, err)
		}

	case ".whoami":
		u := cmdCtx.Gate.Current()
		r.Println(u.DisplayName())

	case ".logout":
		if err := cmdCtx.Logout(ctx); err != nil {
			printErr(cmd, err)
			break
		}
		r.Success("Logged out")
		return replQuit

	case ".clear":
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
	}
	return replContinueLoop
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .tables            List the practice tables
  .expand <table>    Expand or collapse a table in the list
  .schema <table>    Show the columns of a table
  .generate <table>  Put a preview query for a table in the editor
  .show              Show the current query
  .run               Run the current query
  .download <what>   Download diagram, prompts or all
  .whoami            Show the signed-in user
  .logout            Sign out and leave
  .clear             Clear the screen
  .quit / .exit      Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter creates a readline completer for table names.
func newTableCompleter(cmdCtx *CommandContext) *readline.PrefixCompleter {
	tables := cmdCtx.Workspace.Snapshot().Tables

	tableItems := func() []readline.PrefixCompleterInterface {
		items := make([]readline.PrefixCompleterInterface, 0, len(tables))
		for _, tv := range tables {
			items = append(items, readline.PcItem(tv.Name))
		}
		return items
	}

	items := tableItems()
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".expand", tableItems()...),
		readline.PcItem(".schema", tableItems()...),
		readline.PcItem(".generate", tableItems()...),
		readline.PcItem(".show"),
		readline.PcItem(".run"),
		readline.PcItem(".download",
			readline.PcItem("diagram"),
			readline.PcItem("prompts"),
			readline.PcItem("all"),
		),
		readline.PcItem(".whoami"),
		readline.PcItem(".logout"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
