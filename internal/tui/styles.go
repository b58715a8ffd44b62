package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(connected bool, window string, windowCount int, width int) string {
	var status string
	if connected {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{dot + " daemon connected"}
		if window != "" {
			parts = append(parts, "target:"+window)
		}
		if windowCount > 1 {
			parts = append(parts, "windows:"+strconv.Itoa(windowCount))
		}
		status = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(status)
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	lines := []string{
		"u: url  enter: reload  h: home  m: mode  t: on-top  b: barcode  k: menu",
		"s: scan  1-8: rescan  d: devtools  n: new  w: next window  D/X: set/clear default  q: quit",
	}
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(strings.Join(lines, "\n"))
}

// row renders a label/value pair.
func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// toggle renders an on/off flag with its detail.
func toggle(label string, on bool, detail string) string {
	flag := offStyle.Render("off")
	if on {
		flag = onStyle.Render("on ")
	}
	if detail != "" {
		flag += " " + dimStyle.Render(detail)
	}
	return labelStyle.Render(label) + flag
}
