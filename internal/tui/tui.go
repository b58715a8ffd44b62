// Package tui is the interactive terminal control panel for viewhost
// windows. It holds no window state of its own; every action goes to the
// daemon.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/viewhost/internal/config"
)

// Options configures Run.
type Options struct {
	// ConfigPath defaults to ~/.config/viewhost/config.yaml.
	ConfigPath string
	// Window is the initial target. Empty targets the newest window.
	Window string
}

// Run starts the panel and blocks until the user quits.
func Run(ctl Controller, opts Options) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("panel requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}

	m := newModel(ctl, path, res.Config, opts.Window)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}
