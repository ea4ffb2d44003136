// Package tui contains the terminal interfaces: the results viewer shown
// after a run and the live run view that follows a loop in progress.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("245"))

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusColors = map[string]lipgloss.Style{
		"running":            lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"waiting":            lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"paused":             lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"missing_checkpoint": lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		"completed":          lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		"blocked":            lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		"stopped":            lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		"failed":             lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	plainStatus = lipgloss.NewStyle()
)

// statusStyle returns the style for a runner status name.
func statusStyle(status string) lipgloss.Style {
	if s, ok := statusColors[status]; ok {
		return s
	}
	return plainStatus
}
