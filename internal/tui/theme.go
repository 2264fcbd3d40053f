package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the chat.
type Theme struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Assistant lipgloss.Style
	User      lipgloss.Style
	Error     lipgloss.Style
	Status    lipgloss.Style
	Help      lipgloss.Style
	Panel     lipgloss.Style
	Input     lipgloss.Style
	Primary   lipgloss.Color
	Muted     lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary: lipgloss.Color("#22d3ee"),
	Muted:   lipgloss.Color("#737373"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a5f3fc")).
		MarginBottom(1),
	Assistant: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a5f3fc")),
	User: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#cbd5e1")),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		Italic(true),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")),
	Panel: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(1, 2),
	Input: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#22d3ee")).
		Padding(0, 1),
}
