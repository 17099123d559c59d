package output

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used across commands and the TUI.
type Styles struct {
	Header    lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	TableName lipgloss.Style
	Column    lipgloss.Style
	Type      lipgloss.Style
	Key       lipgloss.Style
}

// NewStyles builds the palette on r. A nil renderer uses the default one.
func NewStyles(r *lipgloss.Renderer) *Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &Styles{
		Header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		TableName: r.NewStyle().Bold(true),
		Column:    r.NewStyle(),
		Type:      r.NewStyle().Foreground(lipgloss.Color("6")),
		Key:       r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}
