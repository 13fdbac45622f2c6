package cmd

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorSuccess = lipgloss.Color("#10B981") // Emerald
	colorError   = lipgloss.Color("#EF4444") // Red
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorAccent  = lipgloss.Color("#06B6D4") // Cyan
	colorMuted   = lipgloss.Color("#6B7280") // Gray
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// rule is the separator printed around an inline listing.
var rule = mutedStyle.Render("============================================================")
