package mcptools

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/testutil"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTools(t *testing.T) (*Tools, *testutil.FakeBackend) {
	t.Helper()

	fb := testutil.NewFakeBackend(t)
	fb.AddTable("dbo.ex_customers",
		testutil.FakeColumn{Name: "customer_id", Type: "INTEGER", IsPrimaryKey: true},
		testutil.FakeColumn{Name: "city", Type: "TEXT", Nullable: true},
	)
	fb.AddTable("sqlite_sequence")

	client, err := arena.NewClient(arena.Config{BaseURL: fb.URL()}, testutil.NewTestLogger(t))
	require.NoError(t, err)

	ws := workspace.New(client, activity.Discard, workspace.Options{
		ExcludeTables: []string{"sqlite_sequence"},
	}, testutil.NewTestLogger(t))
	ws.Bind(&arena.User{Email: "ada@example.com"})

	return New(ws, testutil.NewTestLogger(t)), fb
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestListTables(t *testing.T) {
	tools, _ := setupTools(t)

	res, err := tools.ListTables(context.Background(), callRequest("list_tables", nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out struct {
		Tables []string `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, []string{"dbo.ex_customers"}, out.Tables)
}

func TestDescribeTable(t *testing.T) {
	tools, fb := setupTools(t)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
		wantCol string
	}{
		{name: "known table", args: map[string]any{"table": "dbo.ex_customers"}, wantCol: "customer_id"},
		{name: "missing argument", args: map[string]any{}, wantErr: "Missing table parameter"},
		{name: "unknown table", args: map[string]any{"table": "dbo.nope"}, wantErr: "Table not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tools.DescribeTable(context.Background(), callRequest("describe_table", tt.args))
			require.NoError(t, err)

			text := resultText(t, res)
			if tt.wantErr != "" {
				assert.True(t, res.IsError)
				assert.Contains(t, text, tt.wantErr)
				return
			}
			assert.False(t, res.IsError)
			assert.Contains(t, text, tt.wantCol)
		})
	}

	// Served from the workspace cache the second time.
	_, err := tools.DescribeTable(context.Background(), callRequest("describe_table", map[string]any{"table": "dbo.ex_customers"}))
	require.NoError(t, err)
	assert.Equal(t, 1, fb.SchemaCalls("dbo.ex_customers"))
}

func TestGenerateQuery(t *testing.T) {
	tools, _ := setupTools(t)

	res, err := tools.GenerateQuery(context.Background(), callRequest("generate_query", map[string]any{"table": "dbo.ex_orders"}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM dbo.ex_orders LIMIT 10;", resultText(t, res))
	assert.Equal(t, "SELECT * FROM dbo.ex_orders LIMIT 10;", tools.ws.Query())
}

func TestRunQuery(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		status    int
		body      any
		wantError bool
		want      string
		wantSQL   string
	}{
		{
			name:    "rows",
			args:    map[string]any{"sql": "SELECT city FROM dbo.ex_customers;"},
			status:  http.StatusOK,
			body:    `{"success":true,"data":[{"city":"Paris"},{"city":null}],"rowCount":2}`,
			want:    `"city": "Paris"`,
			wantSQL: "SELECT city FROM dbo.ex_customers;",
		},
		{
			name:    "no rows",
			args:    map[string]any{"sql": "SELECT 1 WHERE 0;"},
			status:  http.StatusOK,
			body:    `{"success":true,"data":[],"rowCount":0}`,
			want:    workspace.MsgNoRows,
			wantSQL: "SELECT 1 WHERE 0;",
		},
		{
			name:      "backend error",
			args:      map[string]any{"sql": "SELEC 1;"},
			status:    http.StatusBadRequest,
			body:      `{"success":false,"error":"near \"SELEC\": syntax error"}`,
			wantError: true,
			want:      `Error: near "SELEC": syntax error`,
			wantSQL:   "SELEC 1;",
		},
		{
			name:    "current editor query",
			args:    map[string]any{},
			status:  http.StatusOK,
			body:    `{"success":true,"data":[{"n":1}],"rowCount":1}`,
			want:    `"rowCount": 1`,
			wantSQL: workspace.DefaultQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools, fb := setupTools(t)
			fb.OnQuery(func(string) (int, any) { return tt.status, tt.body })

			res, err := tools.RunQuery(context.Background(), callRequest("run_query", tt.args))
			require.NoError(t, err)

			assert.Equal(t, tt.wantError, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
			assert.Equal(t, []string{tt.wantSQL}, fb.Queries())
		})
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	tools, _ := setupTools(t)
	s := NewServer(tools.ws, "test", nil)
	require.NotNil(t, s)
}
