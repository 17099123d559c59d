package commands

import (
	"github.com/amit-mskl/sql-playground/internal/mcptools"
	"github.com/spf13/cobra"
)

// NewMCPCommand creates the mcp command.
func NewMCPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the workspace as MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

The server exposes list_tables, describe_table, generate_query and
run_query for the signed-in user. Queries are logged like any other run.`,
		Example: `  # Register with an MCP client
  sqlarena mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := cmdCtx.Activate(cmd.Context()); err != nil {
				return err
			}

			cmdCtx.Logger.Info("starting mcp server", "backend", cmdCtx.Client.BaseURL())
			s := mcptools.NewServer(cmdCtx.Workspace, version, cmdCtx.Logger)
			return mcptools.Serve(s)
		},
	}
	return cmd
}
