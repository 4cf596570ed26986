package style

import "github.com/charmbracelet/lipgloss"

// Bold and Dim are the two base text styles Table uses for headers and
// separators.
var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)
)
