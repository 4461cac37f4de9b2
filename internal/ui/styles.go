package ui

import "github.com/charmbracelet/lipgloss"

// accentFrom and accentTo bound the progress gradient. The buffered bar
// uses the first.
const (
	accentFrom = "#FF8C00"
	accentTo   = "#FF5F1F"
)

var (
	textColor  = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}
	mutedColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#AAAAAA"}
	dimColor   = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"}

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentFrom))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(textColor)
	artistStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	codecStyle    = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	timeStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	bufferedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(accentFrom))
	statusStyle   = lipgloss.NewStyle().Foreground(textColor)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C03030", Dark: "#F26056"})
	helpStyle     = lipgloss.NewStyle().Foreground(dimColor)
	helpKeyStyle  = lipgloss.NewStyle().Foreground(mutedColor).Bold(true)
)
