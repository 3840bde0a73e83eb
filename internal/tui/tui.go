package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/netreach/paris-traceroute/internal/runner"
)

// Run starts the TUI for one traceroute/MDA run against target.
func Run(target string, opts runner.Options) error {
	model := New(target, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := finalModel.(Model); ok {
		if m.state == StateError && m.err != nil {
			return m.err
		}
	}

	return nil
}
