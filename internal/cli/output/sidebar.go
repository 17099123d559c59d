package output

import (
	"strings"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	markerCollapsed = "▶"
	markerExpanded  = "▼"
	keyMarker       = "🔑 "
	notNullSuffix   = " NOT NULL"
)

// TableLine returns the sidebar line of one table.
func TableLine(tv workspace.TableView) string {
	marker := markerCollapsed
	if tv.Expanded {
		marker = markerExpanded
	}
	return marker + " " + tv.Name
}

// ColumnLine returns the sidebar line of one column: an optional key
// marker, the name, the type and NOT NULL for non-nullable columns.
func ColumnLine(c arena.Column) string {
	var b strings.Builder
	if c.IsPrimaryKey {
		b.WriteString(keyMarker)
	}
	b.WriteString(c.Name)
	if c.Type != "" {
		b.WriteString(" ")
		b.WriteString(c.Type)
	}
	if !c.Nullable {
		b.WriteString(notNullSuffix)
	}
	return b.String()
}

// SidebarLines renders the table list with expanded schemas.
func SidebarLines(tables []workspace.TableView) []string {
	var lines []string
	for _, tv := range tables {
		lines = append(lines, TableLine(tv))
		if !tv.Expanded {
			continue
		}
		if !tv.Loaded() {
			lines = append(lines, "    "+workspace.MsgLoadingSchema)
			continue
		}
		for _, c := range tv.Columns {
			lines = append(lines, "    "+ColumnLine(c))
		}
	}
	return lines
}

type tableOutput struct {
	Name     string         `json:"name" yaml:"name"`
	Expanded bool           `json:"expanded" yaml:"expanded"`
	Columns  []arena.Column `json:"columns,omitempty" yaml:"columns,omitempty"`
}

type schemaOutput struct {
	Name    string         `json:"name"`
	Columns []arena.Column `json:"columns"`
}

type columnYAML struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Nullable     bool   `yaml:"nullable"`
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`
}

// Tables writes the sidebar.
func (r *Renderer) Tables(tables []workspace.TableView) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		out := make([]tableOutput, 0, len(tables))
		for _, tv := range tables {
			out = append(out, tableOutput{Name: tv.Name, Expanded: tv.Expanded, Columns: tv.Columns})
		}
		return r.JSON(out)
	case ModeYAML:
		out := make([]map[string]any, 0, len(tables))
		for _, tv := range tables {
			entry := map[string]any{"name": tv.Name, "expanded": tv.Expanded}
			if tv.Columns != nil {
				entry["columns"] = columnsYAML(tv.Columns)
			}
			out = append(out, entry)
		}
		return r.YAML(out)
	case ModeCSV:
		t := table.NewWriter()
		t.AppendHeader(table.Row{"table"})
		for _, tv := range tables {
			t.AppendRow(table.Row{tv.Name})
		}
		r.Println(t.RenderCSV())
		return nil
	}

	if len(tables) == 0 {
		r.Muted("No tables available")
		return nil
	}

	styled := r.EffectiveMode() == ModeText
	for _, line := range SidebarLines(tables) {
		switch {
		case !styled:
			r.Println(line)
		case strings.HasPrefix(line, "    "):
			r.Println(r.styles.Column.Render(line))
		default:
			r.Println(r.styles.TableName.Render(line))
		}
	}
	return nil
}

// Schema writes the column list of one table.
func (r *Renderer) Schema(name string, cols []arena.Column) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		if cols == nil {
			cols = []arena.Column{}
		}
		return r.JSON(schemaOutput{Name: name, Columns: cols})
	case ModeYAML:
		return r.YAML(map[string]any{"name": name, "columns": columnsYAML(cols)})
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Key"})
	for _, c := range cols {
		nullable, key := "YES", ""
		if !c.Nullable {
			nullable = "NO"
		}
		if c.IsPrimaryKey {
			key = "PK"
		}
		t.AppendRow(table.Row{c.Name, c.Type, nullable, key})
	}

	switch r.EffectiveMode() {
	case ModeMarkdown:
		r.Println(FormatHeader(2, name))
		r.Println("")
		r.Println(t.RenderMarkdown())
	case ModeCSV:
		r.Println(t.RenderCSV())
	default:
		r.Header(2, name)
		t.SetStyle(table.StyleLight)
		t.Style().Format.Header = text.FormatDefault
		r.Println(t.Render())
	}
	return nil
}

func columnsYAML(cols []arena.Column) []columnYAML {
	out := make([]columnYAML, 0, len(cols))
	for _, c := range cols {
		out = append(out, columnYAML(c))
	}
	return out
}
