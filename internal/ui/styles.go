package ui

import "charm.land/lipgloss/v2"

var (
	dimColor = lipgloss.Color("240")

	promptStyle = lipgloss.NewStyle().Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(dimColor)
)
