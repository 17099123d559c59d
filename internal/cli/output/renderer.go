// Package output renders command results for terminals and pipes.
//
// In auto mode output is styled text on a TTY and markdown otherwise, so
// piping into a file or an agent gets something readable without colour
// codes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects an output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeYAML     Mode = "yaml"
)

// ParseMode maps a config value to a Mode. Unknown values become auto.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeText, ModeMarkdown, ModeJSON, ModeCSV, ModeYAML:
		return m
	case "md":
		return ModeMarkdown
	default:
		return ModeAuto
	}
}

// Renderer writes formatted output.
type Renderer struct {
	w      io.Writer
	errW   io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer. Colour is enabled only when w is a terminal.
func NewRenderer(w, errW io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(w, errW, isTerminal(w), mode)
}

// NewRendererWithTTY creates a renderer with explicit TTY state.
func NewRendererWithTTY(w, errW io.Writer, tty bool, mode Mode) *Renderer {
	lr := lipgloss.NewRenderer(w)
	if !tty {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		w:      w,
		errW:   errW,
		mode:   mode,
		isTTY:  tty,
		styles: NewStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// EffectiveMode resolves auto to text or markdown.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer { return r.w }

// ErrWriter returns the diagnostics writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errW }

// Styles returns the lipgloss styles bound to this renderer.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// Header writes a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Header.Render(text))
		return
	}
	r.Println(FormatHeader(level, text))
}

// Success writes a success message.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render(msg))
}

// Warning writes a warning to the diagnostics stream.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.styles.Warning.Render(msg))
}

// Error writes an error message to the output.
func (r *Renderer) Error(msg string) {
	r.Println(r.styles.Error.Render(msg))
}

// Muted writes secondary information.
func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// StatusLine writes "<icon> name" followed by an optional detail.
func (r *Renderer) StatusLine(name, status, detail string) {
	icon, style := "•", r.styles.Muted
	switch status {
	case "success":
		icon, style = "✓", r.styles.Success
	case "error":
		icon, style = "✗", r.styles.Error
	case "warning":
		icon, style = "!", r.styles.Warning
	}
	line := style.Render(icon) + " " + name
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML. A *yaml.Node is written as is.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}
