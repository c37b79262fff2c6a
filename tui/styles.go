package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("39")
	colorMuted  = lipgloss.Color("245")
	colorError  = lipgloss.Color("196")
	colorOK     = lipgloss.Color("42")
	colorBorder = lipgloss.Color("240")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	statsStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	statusStyle = lipgloss.NewStyle().Foreground(colorOK)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	helpStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	frameStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)
)
