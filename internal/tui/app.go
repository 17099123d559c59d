// Package tui is the full-screen SQL Arena workspace: a table sidebar, a
// query editor and a results pane.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/amit-mskl/sql-playground/internal/download"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Focus represents which pane is focused
type Focus int

const (
	FocusSidebar Focus = iota
	FocusEditor
	FocusResults
)

const (
	editorHeight    = 6
	minSidebarWidth = 24
)

// Downloader saves a resource and returns the written path.
type Downloader interface {
	Download(ctx context.Context, asset download.Asset, loginID string) (string, error)
}

// Options are the dependencies of App.
type Options struct {
	Workspace  *workspace.Workspace
	Downloader Downloader
	Diagram    download.Asset
	Prompts    download.Asset
	// Logout ends the session. The app quits once it returns.
	Logout func(ctx context.Context) error
}

// App is the main TUI application model.
type App struct {
	ctx  context.Context
	opts Options
	ws   *workspace.Workspace
	user *arena.User

	// Window size
	width, height int

	focus   Focus
	cursor  int
	editor  textarea.Model
	results viewport.Model
	help    help.Model
	keys    KeyMap

	running   bool
	status    string
	statusErr bool
	loggedOut bool
}

// NewApp creates a new TUI application.
func NewApp(ctx context.Context, opts Options) *App {
	ta := textarea.New()
	ta.Placeholder = "Write SQL here (ctrl+r to run)..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(60)
	ta.SetHeight(editorHeight)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.SetValue(opts.Workspace.Query())
	ta.Blur()

	a := &App{
		ctx:     ctx,
		opts:    opts,
		ws:      opts.Workspace,
		user:    opts.Workspace.User(),
		width:   80,
		height:  24,
		focus:   FocusSidebar,
		editor:  ta,
		results: viewport.New(60, 10),
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
	a.showResult(a.ws.Snapshot().Result)
	return a
}

// LoggedOut reports whether the app quit because the user logged out.
func (a *App) LoggedOut() bool { return a.loggedOut }

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadTables, textarea.Blink)
}

func (a *App) loadTables() tea.Msg {
	if a.ws.Snapshot().TablesLoaded {
		return TablesLoadedMsg{}
	}
	return TablesLoadedMsg{Error: a.ws.ListTables(a.ctx)}
}

func (a *App) fetchSchema(name string) tea.Cmd {
	return func() tea.Msg {
		return SchemaLoadedMsg{Table: name, Error: a.ws.FetchSchema(a.ctx, name)}
	}
}

func (a *App) runQuery() tea.Cmd {
	a.ws.SetQuery(a.editor.Value())
	a.running = true
	a.setStatus("Running...", false)
	return func() tea.Msg {
		return ResultMsg{Result: a.ws.Run(a.ctx)}
	}
}

func (a *App) downloadAsset(asset download.Asset) tea.Cmd {
	if a.opts.Downloader == nil {
		return nil
	}
	loginID := a.user.Identity()
	return func() tea.Msg {
		p, err := a.opts.Downloader.Download(a.ctx, asset, loginID)
		return DownloadedMsg{Path: p, Error: err}
	}
}

func (a *App) logout() tea.Msg {
	if a.opts.Logout == nil {
		return LoggedOutMsg{}
	}
	return LoggedOutMsg{Error: a.opts.Logout(a.ctx)}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case TablesLoadedMsg:
		if msg.Error != nil {
			a.setStatus("Could not load tables", true)
		}
		a.clampCursor()
		return a, nil

	case SchemaLoadedMsg:
		// Failures leave the "Loading schema..." placeholder in place.
		return a, nil

	case ResultMsg:
		a.running = false
		a.setStatus("", false)
		a.showResult(a.ws.Snapshot().Result)
		return a, nil

	case DownloadedMsg:
		if msg.Error != nil {
			a.setStatus(msg.Error.Error(), true)
		} else {
			a.setStatus("Saved "+msg.Path, false)
		}
		return a, nil

	case LoggedOutMsg:
		if msg.Error != nil {
			a.setStatus(msg.Error.Error(), true)
			return a, nil
		}
		a.loggedOut = true
		return a, tea.Quit
	}

	var cmd tea.Cmd
	if a.focus == FocusEditor {
		a.editor, cmd = a.editor.Update(msg)
	}
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil

	case key.Matches(msg, a.keys.Run):
		if a.running {
			return a, nil
		}
		return a, a.runQuery()

	case key.Matches(msg, a.keys.DownloadDiagram):
		return a, a.downloadAsset(a.opts.Diagram)

	case key.Matches(msg, a.keys.DownloadPrompts):
		return a, a.downloadAsset(a.opts.Prompts)

	case key.Matches(msg, a.keys.Logout):
		return a, a.logout

	case key.Matches(msg, a.keys.NextPane):
		return a, a.setFocus((a.focus + 1) % 3)
	}

	switch a.focus {
	case FocusEditor:
		if msg.Type == tea.KeyEsc {
			return a, a.setFocus(FocusSidebar)
		}
		var cmd tea.Cmd
		a.editor, cmd = a.editor.Update(msg)
		a.ws.SetQuery(a.editor.Value())
		return a, cmd

	case FocusResults:
		var cmd tea.Cmd
		a.results, cmd = a.results.Update(msg)
		return a, cmd
	}

	return a.handleSidebarKey(msg)
}

func (a *App) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tables := a.ws.Snapshot().Tables
	if len(tables) == 0 {
		return a, nil
	}
	name := tables[a.cursor].Name

	switch {
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(tables)-1 {
			a.cursor++
		}
	case key.Matches(msg, a.keys.Toggle):
		if _, needsFetch := a.ws.Toggle(name); needsFetch {
			return a, a.fetchSchema(name)
		}
	case key.Matches(msg, a.keys.Generate):
		a.editor.SetValue(a.ws.GenerateQuery(name))
		return a, a.setFocus(FocusEditor)
	}
	return a, nil
}

func (a *App) setFocus(f Focus) tea.Cmd {
	a.focus = f
	if f == FocusEditor {
		return a.editor.Focus()
	}
	a.editor.Blur()
	return nil
}

func (a *App) setStatus(msg string, isErr bool) {
	a.status = msg
	a.statusErr = isErr
}

func (a *App) clampCursor() {
	n := len(a.ws.Snapshot().Tables)
	if a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
}

func (a *App) resize(width, height int) {
	a.width, a.height = width, height
	mainWidth := a.width - a.sidebarWidth() - 4
	a.editor.SetWidth(max(mainWidth, 10))
	a.results.Width = max(mainWidth, 10)
	a.results.Height = max(a.contentHeight()-editorHeight-2, 3)
	a.help.Width = width
	a.showResult(a.ws.Snapshot().Result)
}

func (a *App) sidebarWidth() int {
	return max(a.width/4, minSidebarWidth)
}

func (a *App) contentHeight() int {
	// Header, status bar and help line.
	return a.height - 6
}

func (a *App) showResult(res workspace.Result) {
	a.results.SetContent(renderResult(res))
	a.results.GotoTop()
}

// renderResult renders res the way the text output mode does.
func renderResult(res workspace.Result) string {
	var buf bytes.Buffer
	r := output.NewRendererWithTTY(&buf, &buf, false, output.ModeText)
	if err := r.Result(res); err != nil {
		return err.Error()
	}
	return strings.TrimRight(buf.String(), "\n")
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SQL Arena"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(a.user.DisplayName()))
	b.WriteString("\n\n")

	sidebar := a.renderSidebar(a.sidebarWidth(), a.contentHeight())
	main := lipgloss.JoinVertical(lipgloss.Left,
		a.paneStyle(FocusEditor).Render(a.editor.View()),
		a.paneStyle(FocusResults).Render(a.results.View()),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main))
	b.WriteString("\n")

	b.WriteString(a.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(a.help.View(a.keys))

	return b.String()
}

func (a *App) paneStyle(f Focus) lipgloss.Style {
	if a.focus == f {
		return focusedPaneStyle
	}
	return paneStyle
}

func (a *App) renderSidebar(width, height int) string {
	var content strings.Builder
	content.WriteString(paneHeaderStyle.Render("Tables"))
	content.WriteString("\n")

	tables := a.ws.Snapshot().Tables
	for i, tv := range tables {
		line := output.TableLine(tv)
		if i == a.cursor && a.focus == FocusSidebar {
			content.WriteString(selectedItemStyle.Render(line))
		} else {
			content.WriteString(line)
		}
		content.WriteString("\n")

		if !tv.Expanded {
			continue
		}
		if !tv.Loaded() {
			content.WriteString(mutedStyle.Render("    " + workspace.MsgLoadingSchema))
			content.WriteString("\n")
			continue
		}
		for _, c := range tv.Columns {
			content.WriteString(columnStyle.Render("    " + output.ColumnLine(c)))
			content.WriteString("\n")
		}
	}

	if len(tables) == 0 {
		content.WriteString(mutedStyle.Render("No tables"))
	}

	return a.paneStyle(FocusSidebar).Width(width).Height(max(height, 3)).Render(content.String())
}

func (a *App) renderStatusBar() string {
	switch {
	case a.status != "" && a.statusErr:
		return errorStyle.Render(a.status)
	case a.status != "":
		return statusStyle.Render(a.status)
	}

	res := a.ws.Snapshot().Result
	if res.Kind == workspace.ResultRows {
		return mutedStyle.Render(fmt.Sprintf("%d rows in %dms", res.RowCount, res.Elapsed.Milliseconds()))
	}
	return mutedStyle.Render("Ready")
}
