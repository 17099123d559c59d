package commands

import (
	"fmt"

	"github.com/amit-mskl/sql-playground/internal/download"
	"github.com/amit-mskl/sql-playground/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tui",
		Aliases: []string{"ui"},
		Short:   "Open the full-screen workspace",
		Long: `Open the SQL Arena workspace in the terminal.

The left pane lists the practice tables; expand one to see its columns.
Write SQL in the editor and press ctrl+r to run it. Press f1 for all key
bindings.`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
	return cmd
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := cmdCtx.RequireUser(); err != nil {
		return err
	}

	catalog := download.Catalog(cmdCtx.Cfg.Assets.Diagram, cmdCtx.Cfg.Assets.Prompts)
	app := tui.NewApp(cmd.Context(), tui.Options{
		Workspace:  cmdCtx.Workspace,
		Downloader: cmdCtx.Downloader,
		Diagram:    catalog[0],
		Prompts:    catalog[1],
		Logout:     cmdCtx.Logout,
	})

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	if app.LoggedOut() {
		cmdCtx.Renderer.Success("Logged out")
	}
	return nil
}
