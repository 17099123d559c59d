package commands

import (
	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/spf13/cobra"
)

// TablesOptions holds options for the tables command.
type TablesOptions struct {
	Expand []string
	All    bool
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &TablesOptions{}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the practice tables",
		Long: `List the tables available for practice.

Expanded tables show their columns: primary keys are marked with 🔑 and
columns that cannot be NULL end with NOT NULL.`,
		Example: `  sqlarena tables
  sqlarena tables --expand dbo.ex_customers
  sqlarena tables --all -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Expand, "expand", "e", nil, "Expand the given tables")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Expand every table")
	return cmd
}

func runTables(cmd *cobra.Command, opts *TablesOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if _, err := cmdCtx.Activate(ctx); err != nil {
		return err
	}

	ws := cmdCtx.Workspace
	expand := opts.Expand
	if opts.All {
		expand = nil
		for _, tv := range ws.Snapshot().Tables {
			expand = append(expand, tv.Name)
		}
	}
	for _, name := range expand {
		if ws.Expanded(name) {
			continue
		}
		// Failures leave the schema absent; the sidebar shows it as loading.
		_, _ = ws.ToggleTable(ctx, name)
	}

	return cmdCtx.Renderer.Tables(ws.Snapshot().Tables)
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "schema <table>",
		Short:             "Show the columns of a table",
		Example:           `  sqlarena schema dbo.ex_orders`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTableNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := cmdCtx.RequireUser(); err != nil {
				return err
			}
			cols, err := cmdCtx.Workspace.Schema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cmdCtx.Renderer.Schema(args[0], cols)
		},
	}
}

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Run bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <table>",
		Short: "Generate a preview query for a table",
		Example: `  sqlarena generate dbo.ex_orders
  sqlarena generate dbo.ex_orders --run`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTableNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := cmdCtx.RequireUser(); err != nil {
				return err
			}
			q := cmdCtx.Workspace.GenerateQuery(args[0])
			if !opts.Run {
				r := cmdCtx.Renderer
				if r.EffectiveMode() == output.ModeMarkdown {
					r.Printf("```sql\n%s\n```\n", q)
					return nil
				}
				r.Println(q)
				return nil
			}
			return cmdCtx.Renderer.Result(cmdCtx.Workspace.Run(cmd.Context()))
		},
	}

	cmd.Flags().BoolVar(&opts.Run, "run", false, "Run the generated query")
	return cmd
}

func completeTableNames(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer cleanup()

	if _, err := cmdCtx.Activate(cmd.Context()); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, tv := range cmdCtx.Workspace.Snapshot().Tables {
		names = append(names, tv.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
