package tui

import (
	"github.com/charmbracelet/lipgloss"

	"relay-agent/src/contracts"
)

// Color palette for the watch dashboard.
var (
	colorPending   = lipgloss.Color("#FBBC04") // Yellow
	colorSuccess   = lipgloss.Color("#34A853") // Green
	colorFailure   = lipgloss.Color("#EA4335") // Red
	colorTitle     = lipgloss.Color("#8AB4F8")
	colorSecondary = lipgloss.Color("#9AA0A6")
	colorBorder    = lipgloss.Color("#5F6368")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorTitle).
			Bold(true).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorBorder)
)

// stateStyle colors a build state cell.
func stateStyle(state contracts.BuildState) lipgloss.Style {
	switch state {
	case contracts.StateSuccess:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case contracts.StateFailure:
		return lipgloss.NewStyle().Foreground(colorFailure)
	default:
		return lipgloss.NewStyle().Foreground(colorPending)
	}
}
