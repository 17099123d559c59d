package commands

import (
	"strings"
	"time"

	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// ActivityOptions holds flags for the activity command.
type ActivityOptions struct {
	Limit int
	All   bool
}

// NewActivityCommand creates the activity command.
func NewActivityCommand() *cobra.Command {
	opts := &ActivityOptions{}

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the local activity journal",
		Long: `Show activities recorded on this machine and their delivery status.

Every login, query and download is journaled locally before it is sent to
the backend. Use this to check whether activity logging is reaching the
server.`,
		Example: `  # Last 20 activities of the signed-in user
  sqlarena activity

  # Everything, as JSON
  sqlarena activity --all --limit 0 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivity(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of entries (0 for no limit)")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Include every user, not just the signed-in one")
	return cmd
}

func runActivity(cmd *cobra.Command, opts *ActivityOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	loginID := ""
	if !opts.All {
		u, err := cmdCtx.RequireUser()
		if err != nil {
			return err
		}
		loginID = u.Identity()
	}

	entries, err := cmdCtx.Store.RecentActivity(cmd.Context(), loginID, opts.Limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(entries)
	case output.ModeYAML:
		return r.YAML(entries)
	}

	if len(entries) == 0 {
		r.Muted("No activity recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Time", "Type", "User", "Status", "Attempts", "Detail"})
	for _, e := range entries {
		detail := e.SQLQuery
		if e.LastError != "" {
			detail = e.LastError
		}
		t.AppendRow(table.Row{
			e.CreatedAt.Local().Format(time.DateTime),
			string(e.Type),
			e.LoginID,
			string(e.Status),
			e.Attempts,
			truncate(strings.Join(strings.Fields(detail), " "), 60),
		})
	}

	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		t.RenderMarkdown()
	case output.ModeCSV:
		t.RenderCSV()
	default:
		t.SetStyle(table.StyleLight)
		t.Render()
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
