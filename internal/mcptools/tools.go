// Package mcptools exposes the SQL Arena workspace as MCP tools over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to MCP clients.
const ServerName = "sqlarena"

// Tools holds the workspace the tool handlers act on.
type Tools struct {
	ws     *workspace.Workspace
	logger *slog.Logger
}

// New creates tool handlers bound to ws.
func New(ws *workspace.Workspace, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tools{ws: ws, logger: logger}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(ws *workspace.Workspace, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	New(ws, logger).Register(s)
	return s
}

// Serve runs the server on stdin/stdout until the input closes.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	listTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List the tables of the practice database"),
	)

	describeTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Get the columns of a table: name, type, nullability and primary key"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table, e.g. dbo.ex_customers"),
		),
	)

	generateTool := mcp.NewTool("generate_query",
		mcp.WithDescription("Build a preview query (first 10 rows) for a table and place it in the editor"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table to preview"),
		),
	)

	runTool := mcp.NewTool("run_query",
		mcp.WithDescription("Execute SQL against the practice database. Without sql the current editor query runs"),
		mcp.WithString("sql",
			mcp.Description("SQL text to execute"),
		),
	)

	s.AddTool(listTool, t.ListTables)
	s.AddTool(describeTool, t.DescribeTable)
	s.AddTool(generateTool, t.GenerateQuery)
	s.AddTool(runTool, t.RunQuery)
}

// ListTables handles list_tables.
func (t *Tools) ListTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !t.ws.Snapshot().TablesLoaded {
		if err := t.ws.ListTables(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list tables: %v", err)), nil
		}
	}

	tables := t.ws.Snapshot().Tables
	names := make([]string, 0, len(tables))
	for _, tv := range tables {
		names = append(names, tv.Name)
	}
	return jsonResult(map[string]any{"tables": names})
}

// DescribeTable handles describe_table.
func (t *Tools) DescribeTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
	}

	cols, err := t.ws.Schema(ctx, table)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Describe failed: %v", err)), nil
	}
	if cols == nil {
		cols = []arena.Column{}
	}
	return jsonResult(map[string]any{"table": table, "columns": cols})
}

// GenerateQuery handles generate_query.
func (t *Tools) GenerateQuery(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
	}
	return mcp.NewToolResultText(t.ws.GenerateQuery(table)), nil
}

// RunQuery handles run_query. Query failures are tool errors carrying the
// message a user would see.
func (t *Tools) RunQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var res workspace.Result
	if sql := optionalString(request, "sql"); sql != "" {
		res = t.ws.Execute(ctx, sql)
	} else {
		res = t.ws.Run(ctx)
	}

	t.logger.Debug("mcp query finished", "kind", res.Kind.String(), "rows", res.RowCount)

	switch res.Kind {
	case workspace.ResultError:
		return mcp.NewToolResultError(res.Message), nil
	case workspace.ResultRows:
		if res.Empty() {
			return mcp.NewToolResultText(res.Text()), nil
		}
		return jsonResult(queryOutput{
			SQL:       res.SQL,
			Columns:   res.Columns,
			Rows:      res.Rows,
			RowCount:  res.RowCount,
			ElapsedMs: res.Elapsed.Milliseconds(),
		})
	default:
		return mcp.NewToolResultText(res.Text()), nil
	}
}

type queryOutput struct {
	SQL       string      `json:"sql"`
	Columns   []string    `json:"columns"`
	Rows      []arena.Row `json:"rows"`
	RowCount  int         `json:"rowCount"`
	ElapsedMs int64       `json:"elapsedMs"`
}

func optionalString(request mcp.CallToolRequest, key string) string {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
