package format

import (
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	dimColor = lipgloss.Color("240")

	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle         = lipgloss.NewStyle().Padding(0, 1)
	dimCellStyle      = cellStyle.Foreground(dimColor)
	borderStyle       = lipgloss.NewStyle().Foreground(dimColor)
	daySeparatorStyle = lipgloss.NewStyle().Foreground(dimColor)
	timeStyle         = lipgloss.NewStyle().Foreground(dimColor)
	outNameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	inNameStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	targetStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	quoteStyle        = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	labelStyle        = lipgloss.NewStyle().Bold(true)
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// truncateLines keeps the first max lines of s, marking the cut with " ...".
func truncateLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n") + " ..."
}
