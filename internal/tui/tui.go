package tui

import (
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"

	tea "github.com/charmbracelet/bubbletea"
)

func Run(p *portal.Session) error {
	applyColorProfilePreference()
	m := newAppModel(p)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
