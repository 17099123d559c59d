package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8"))
	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("12"))

	paneHeaderStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedItemStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	columnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)
