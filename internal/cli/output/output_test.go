package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewRenderer(&buf, &buf, mode), &buf
}

func sampleResult() workspace.Result {
	rows := []arena.Row{
		arena.NewRow("id", json.Number("1"), "name", "Ada", "city", nil),
		arena.NewRow("id", json.Number("2"), "name", "Grace", "city", "NYC"),
		arena.NewRow("id", json.Number("3"), "name", "Linus", "city", "Helsinki"),
	}
	return workspace.Result{
		Kind:     workspace.ResultRows,
		Columns:  []string{"id", "name", "city"},
		Rows:     rows,
		RowCount: 3,
		Elapsed:  42 * time.Millisecond,
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"TEXT":     ModeText,
		"md":       ModeMarkdown,
		"markdown": ModeMarkdown,
		"json":     ModeJSON,
		"csv":      ModeCSV,
		"yaml":     ModeYAML,
		"html":     ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMode(in), in)
	}
}

func TestRenderer_AutoIsMarkdownWhenPiped(t *testing.T) {
	r, _ := newTestRenderer(ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _ = newTestRenderer(ModeText)
	assert.Equal(t, ModeText, r.EffectiveMode())
}

func TestResult_OneEntryPerRow(t *testing.T) {
	tests := []struct {
		mode      Mode
		wantLines int // lines that carry row data
		match     string
	}{
		{ModeText, 3, "│"},
		{ModeMarkdown, 3, "|"},
		{ModeCSV, 3, ","},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, buf := newTestRenderer(tt.mode)
			require.NoError(t, r.Result(sampleResult()))
			out := buf.String()

			for _, h := range []string{"id", "name", "city"} {
				assert.Contains(t, out, h)
			}

			rows := 0
			for _, line := range strings.Split(out, "\n") {
				if strings.Contains(line, tt.match) && (strings.Contains(line, "Ada") || strings.Contains(line, "Grace") || strings.Contains(line, "Linus")) {
					rows++
				}
			}
			assert.Equal(t, tt.wantLines, rows)
			assert.Contains(t, out, "NULL")
		})
	}
}

func TestResult_HeaderOrderFollowsFirstRow(t *testing.T) {
	r, buf := newTestRenderer(ModeCSV)
	require.NoError(t, r.Result(sampleResult()))

	first := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "id,name,city", first)
}

func TestResult_JSONKeepsOrder(t *testing.T) {
	r, buf := newTestRenderer(ModeJSON)
	require.NoError(t, r.Result(sampleResult()))

	out := buf.String()
	assert.Less(t, strings.Index(out, `"id"`), strings.Index(out, `"name"`))
	assert.Less(t, strings.Index(out, `"name"`), strings.Index(out, `"city"`))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 3)
	assert.Nil(t, decoded[0]["city"])
}

func TestResult_YAMLKeepsOrder(t *testing.T) {
	r, buf := newTestRenderer(ModeYAML)
	require.NoError(t, r.Result(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "- id: 1\n  name: Ada\n  city: null\n")
	assert.Contains(t, out, "city: Helsinki")
}

func TestResult_Messages(t *testing.T) {
	tests := []struct {
		name string
		res  workspace.Result
		want string
	}{
		{"pending", workspace.PendingResult(), "No query executed yet"},
		{"empty", workspace.Result{Kind: workspace.ResultRows, Rows: []arena.Row{}}, "No rows found"},
		{"backend error", workspace.Result{Kind: workspace.ResultError, Message: "Error: no such table: x"}, "Error: no such table: x"},
		{"transport error", workspace.Result{Kind: workspace.ResultError, Message: "Connection error: refused"}, "Connection error: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newTestRenderer(ModeText)
			require.NoError(t, r.Result(tt.res))
			assert.Equal(t, tt.want+"\n", buf.String())

			r, buf = newTestRenderer(ModeJSON)
			require.NoError(t, r.Result(tt.res))
			var msg map[string]string
			require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
			assert.Equal(t, tt.want, msg["message"])
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "12345678901234567890", FormatValue(json.Number("12345678901234567890")))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, `{"a":1}`, FormatValue(map[string]any{"a": 1}))
	assert.Equal(t, "x", FormatValue("x"))
}

func TestSidebarLines(t *testing.T) {
	tables := []workspace.TableView{
		{Name: "dbo.ex_customers", Expanded: true, Columns: []arena.Column{
			{Name: "customer_id", Type: "INTEGER", IsPrimaryKey: true},
			{Name: "email", Type: "TEXT", Nullable: true},
		}},
		{Name: "dbo.ex_orders", Expanded: true},
		{Name: "dbo.ex_products"},
	}

	assert.Equal(t, []string{
		"▼ dbo.ex_customers",
		"    🔑 customer_id INTEGER NOT NULL",
		"    email TEXT",
		"▼ dbo.ex_orders",
		"    Loading schema...",
		"▶ dbo.ex_products",
	}, SidebarLines(tables))
}

func TestRenderer_Tables(t *testing.T) {
	tables := []workspace.TableView{{Name: "a"}, {Name: "b", Expanded: true, Columns: []arena.Column{}}}

	r, buf := newTestRenderer(ModeMarkdown)
	require.NoError(t, r.Tables(tables))
	assert.Equal(t, "▶ a\n▼ b\n", buf.String())

	r, buf = newTestRenderer(ModeJSON)
	require.NoError(t, r.Tables(tables))
	assert.Contains(t, buf.String(), `"name": "b"`)

	r, buf = newTestRenderer(ModeText)
	require.NoError(t, r.Tables(nil))
	assert.Equal(t, "No tables available\n", buf.String())
}

func TestRenderer_Schema(t *testing.T) {
	cols := []arena.Column{{Name: "id", Type: "INTEGER", IsPrimaryKey: true}, {Name: "note", Type: "TEXT", Nullable: true}}

	r, buf := newTestRenderer(ModeMarkdown)
	require.NoError(t, r.Schema("dbo.t", cols))
	out := buf.String()
	assert.Contains(t, out, "## dbo.t")
	assert.Contains(t, out, "| id | INTEGER | NO | PK |")

	r, buf = newTestRenderer(ModeYAML)
	require.NoError(t, r.Schema("dbo.t", cols))
	assert.Contains(t, buf.String(), "isPrimaryKey: true")
}

func TestRenderer_SchemaJSON(t *testing.T) {
	tests := []struct {
		name  string
		cols  []arena.Column
		wantN int
	}{
		{name: "columns", cols: []arena.Column{{Name: "id", Type: "INTEGER", IsPrimaryKey: true}}, wantN: 1},
		{name: "empty", cols: []arena.Column{}, wantN: 0},
		{name: "nil", cols: nil, wantN: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newTestRenderer(ModeJSON)
			require.NoError(t, r.Schema("dbo.t", tt.cols))

			var out map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
			assert.Equal(t, "dbo.t", out["name"])
			assert.NotContains(t, out, "expanded")
			cols, ok := out["columns"].([]any)
			require.True(t, ok, "columns must always be an array")
			assert.Len(t, cols, tt.wantN)
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Title", FormatHeader(2, "Title"))
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "- **User:** ada", FormatKeyValue("User", "ada"))
}
