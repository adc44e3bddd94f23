package logger

import (
	"github.com/charmbracelet/lipgloss"
	charm "github.com/charmbracelet/log"
)

// styles returns the level labels used by the CLI, adding TRCE for trace.
func styles() *charm.Styles {
	s := charm.DefaultStyles()

	s.Levels[TraceLevel] = lipgloss.NewStyle().
		SetString("TRCE").
		Bold(true).
		MaxWidth(4).
		Foreground(lipgloss.Color("61"))
	s.Levels[charm.DebugLevel] = s.Levels[charm.DebugLevel].SetString("DEBU")
	s.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	s.Values["error"] = lipgloss.NewStyle().Bold(true)

	return s
}
