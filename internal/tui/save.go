package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/viewhost/internal/config"
)

type savePhase int

const (
	saveHidden  savePhase = iota
	savePreview           // showing diff, awaiting confirm
	saveResult            // showing outcome message
)

type diffKind int

const (
	diffContext diffKind = iota
	diffRemoved
	diffAdded
)

type diffLine struct {
	kind diffKind
	text string
}

// saveOverlay previews a config change as a diff and writes it on confirm.
type saveOverlay struct {
	phase     savePhase
	diffLines []diffLine
	pending   *config.Config
	err       error
	reloaded  bool
}

func (s saveOverlay) active() bool {
	return s.phase != saveHidden
}

// show computes the diff between the running and the updated config.
func (s *saveOverlay) show(original, updated *config.Config) {
	s.err = nil
	s.reloaded = false
	s.pending = nil

	lines := computeDiffLines(original, updated)
	if len(lines) == 0 {
		s.phase = saveResult
		s.err = fmt.Errorf("no changes to save")
		return
	}
	s.diffLines = lines
	s.pending = updated
	s.phase = savePreview
}

// update handles a key while the overlay is visible. It returns the saved
// config after a successful write.
func (s saveOverlay) update(km tea.KeyMsg, path string, ctl Controller) (saveOverlay, *config.Config) {
	switch s.phase {
	case savePreview:
		switch km.String() {
		case "esc", "n":
			s.phase = saveHidden
			s.pending = nil
		case "enter", "y":
			saved := s.pending
			s.pending = nil
			s.phase = saveResult
			if s.err = saved.Save(path); s.err != nil {
				return s, nil
			}
			s.reloaded = ctl != nil && ctl.Reload() == nil
			return s, saved
		}
	case saveResult:
		s.phase = saveHidden
	}
	return s, nil
}

func (s saveOverlay) view(width, height int) string {
	boxW := width - 8
	if boxW > 72 {
		boxW = 72
	}
	if boxW < 30 {
		boxW = 30
	}

	var content string
	switch s.phase {
	case savePreview:
		addStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
		rmStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		ctxStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

		maxText := boxW - 8
		var lines []string
		for _, dl := range s.diffLines {
			t := dl.text
			if maxText > 0 && len(t) > maxText {
				t = t[:maxText]
			}
			switch dl.kind {
			case diffAdded:
				lines = append(lines, addStyle.Render("+ "+t))
			case diffRemoved:
				lines = append(lines, rmStyle.Render("- "+t))
			default:
				lines = append(lines, ctxStyle.Render("  "+t))
			}
		}
		title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render("Save config")
		content = title + "\n\n" + strings.Join(lines, "\n") + "\n\n" + dimStyle.Render("enter: save  esc: cancel")

	case saveResult:
		if s.err != nil {
			content = errorStyle.Render("Error: " + s.err.Error())
		} else {
			content = onStyle.Render("Config saved")
			if s.reloaded {
				content += "\n" + statusStyle.Render("Daemon reloaded")
			}
		}
		content += "\n\n" + dimStyle.Render("press any key to dismiss")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(boxW).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// --- diff computation ---

func computeDiffLines(original, current *config.Config) []diffLine {
	if original == nil || current == nil {
		return nil
	}
	origBytes, err := original.Marshal()
	if err != nil {
		return nil
	}
	currBytes, err := current.Marshal()
	if err != nil {
		return nil
	}

	origStr := strings.TrimSpace(string(origBytes))
	currStr := strings.TrimSpace(string(currBytes))
	if origStr == currStr {
		return nil
	}
	return lcsDiff(strings.Split(origStr, "\n"), strings.Split(currStr, "\n"))
}

// lcsDiff computes a line diff using longest common subsequence and keeps
// one line of context around each change.
func lcsDiff(a, b []string) []diffLine {
	m, n := len(a), len(b)
	tbl := make([][]int, m+1)
	for i := range tbl {
		tbl[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				tbl[i][j] = tbl[i+1][j+1] + 1
			case tbl[i+1][j] >= tbl[i][j+1]:
				tbl[i][j] = tbl[i+1][j]
			default:
				tbl[i][j] = tbl[i][j+1]
			}
		}
	}

	var all []diffLine
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			all = append(all, diffLine{kind: diffContext, text: a[i]})
			i++
			j++
		case tbl[i+1][j] >= tbl[i][j+1]:
			all = append(all, diffLine{kind: diffRemoved, text: a[i]})
			i++
		default:
			all = append(all, diffLine{kind: diffAdded, text: b[j]})
			j++
		}
	}
	for ; i < m; i++ {
		all = append(all, diffLine{kind: diffRemoved, text: a[i]})
	}
	for ; j < n; j++ {
		all = append(all, diffLine{kind: diffAdded, text: b[j]})
	}

	keep := make([]bool, len(all))
	for k, l := range all {
		if l.kind == diffContext {
			continue
		}
		for c := k - 1; c <= k+1; c++ {
			if c >= 0 && c < len(all) {
				keep[c] = true
			}
		}
	}
	var out []diffLine
	for k, l := range all {
		if keep[k] {
			out = append(out, l)
		}
	}
	return out
}

// cloneConfig creates a deep copy of a Config via YAML round-trip.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var clone config.Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}
