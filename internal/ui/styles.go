package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorYellow = lipgloss.Color("#f1fa8c")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorDim    = lipgloss.Color("#6272a4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			PaddingLeft(0).
			Bold(true).
			Foreground(colorBlue)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
