package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#808080")
	colorDim    = lipgloss.Color("#444444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	questionStyle = lipgloss.NewStyle().
			Bold(true)

	recordingStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	preparingStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	processingStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	messageStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	keyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
