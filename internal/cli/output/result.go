package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Result writes a query result: a table when there are rows, the result
// message otherwise.
func (r *Renderer) Result(res workspace.Result) error {
	mode := r.EffectiveMode()

	if res.Empty() {
		switch mode {
		case ModeJSON:
			return r.JSON(resultMessage(res))
		case ModeYAML:
			return r.YAML(resultMessage(res))
		}
		if res.Kind == workspace.ResultError {
			r.Error(res.Text())
		} else {
			r.Muted(res.Text())
		}
		return nil
	}

	switch mode {
	case ModeJSON:
		return r.JSON(res.Rows)
	case ModeYAML:
		return r.YAML(rowsNode(res.Columns, res.Rows))
	}

	t := rowsTable(res.Columns, res.Rows)
	switch mode {
	case ModeMarkdown:
		r.Println(t.RenderMarkdown())
	case ModeCSV:
		r.Println(t.RenderCSV())
		return nil
	default:
		t.SetStyle(table.StyleLight)
		t.Style().Format.Header = text.FormatDefault
		r.Println(t.Render())
	}
	r.Muted(rowSummary(res))
	return nil
}

type messageOutput struct {
	Status  string `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
}

func resultMessage(res workspace.Result) messageOutput {
	return messageOutput{Status: res.Kind.String(), Message: res.Text()}
}

func rowSummary(res workspace.Result) string {
	noun := "rows"
	if res.RowCount == 1 {
		noun = "row"
	}
	return fmt.Sprintf("(%d %s, %dms)", res.RowCount, noun, res.Elapsed.Milliseconds())
}

// rowsTable builds one header cell per column and exactly one table row
// per result row. Keys missing from a row render empty.
func rowsTable(cols []string, rows []arena.Row) table.Writer {
	t := table.NewWriter()

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, row := range rows {
		out := make(table.Row, len(cols))
		for i, c := range cols {
			if v, ok := row.Get(c); ok {
				out[i] = FormatValue(v)
			} else {
				out[i] = ""
			}
		}
		t.AppendRow(out)
	}
	return t
}

// rowsNode builds a YAML sequence of mappings keeping column order.
func rowsNode(cols []string, rows []arena.Row) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, c := range cols {
			v, _ := row.Get(c)
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: c},
				scalarNode(v))
		}
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func scalarNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(x)}
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(x.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: x.String()}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: x}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: FormatValue(x)}
	}
}

// FormatValue renders a cell. SQL NULL renders as "NULL"; nested values
// render as compact JSON.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case json.Number:
		return x.String()
	case map[string]any, []any, arena.Row:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", x)
	}
}
