package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/ipc"
	"github.com/1broseidon/viewhost/internal/viewport"
)

// Controller is the part of the daemon client the panel drives.
type Controller interface {
	CreateWindow(url, mode string) (*viewport.WindowInstance, error)
	Navigate(window, url string) error
	RunScript(window, script string) error
	OpenDevtools(window string) error
	ResizeWindow(window string, width, height int) error
	ResizeViewport(window string, width, height int) error
	SetAlwaysOnTop(window string, enabled bool) error
	SwitchClientIdentity(window string, mobile bool, currentURL string) (*viewport.ChildViewport, error)
	ListWindows() ([]viewport.Snapshot, error)
	Reload() error
}

var _ Controller = (*ipc.Client)(nil)

var errNoWindow = errors.New("no window to control; press n to open one")

// refreshMsg carries a fresh window listing from the daemon.
type refreshMsg struct {
	windows []viewport.Snapshot
	err     error
}

// actionMsg reports the outcome of one control command. apply runs only
// when err is nil.
type actionMsg struct {
	status  string
	err     error
	apply   func(*model)
	refresh bool
}

// model is the root bubbletea model for the control panel.
type model struct {
	ctl        Controller
	configPath string
	cfg        *config.Config
	now        func() time.Time

	window      string
	windows     []string
	url         string
	mobile      bool
	onTop       bool
	showBarcode bool
	menuOpen    bool
	history     scanHistory

	connected bool
	status    string
	err       error

	prompt *prompt
	save   saveOverlay

	width  int
	height int
}

func newModel(ctl Controller, configPath string, cfg *config.Config, window string) model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return model{
		ctl:         ctl,
		configPath:  configPath,
		cfg:         cfg,
		now:         time.Now,
		window:      window,
		mobile:      cfg.DefaultMode != config.ModeDesktop,
		showBarcode: true,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.refresh()
}

func (m model) refresh() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		windows, err := ctl.ListWindows()
		return refreshMsg{windows: windows, err: err}
	}
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case refreshMsg:
		m.applyRefresh(msg)
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		if msg.apply != nil {
			msg.apply(&m)
		}
		if msg.refresh {
			return m, m.refresh()
		}
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.save.active() {
		if km, ok := msg.(tea.KeyMsg); ok {
			var saved *config.Config
			m.save, saved = m.save.update(km, m.configPath, m.ctl)
			if saved != nil {
				m.cfg = saved
			}
		}
		return m, nil
	}

	if m.prompt != nil {
		return m.updatePrompt(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	return m.handleKey(km.String())
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "u":
		return m.openPrompt(promptURL, m.url)
	case "s":
		return m.openPrompt(promptScan, "")
	case "1", "2", "3", "4", "5", "6", "7", "8":
		entry, ok := m.history.get(int(key[0] - '1'))
		if !ok {
			return m, nil
		}
		return m.openPrompt(promptScan, entry.Code)
	case "enter", "r":
		return m, m.navigate(m.url)
	case "h":
		return m, m.navigate(m.cfg.DefaultURL)
	case "m":
		return m, m.switchMode(!m.mobile)
	case "t":
		return m, m.setOnTop(!m.onTop)
	case "b":
		return m, m.setBarcode(!m.showBarcode)
	case "k", "ctrl+k":
		return m, m.setMenu(!m.menuOpen)
	case "esc":
		if m.menuOpen {
			return m, m.setMenu(false)
		}
		return m, nil
	case "d":
		return m, m.devtools()
	case "n", "ctrl+n":
		return m, m.newWindow()
	case "w":
		m.cycleWindow()
		return m, m.refresh()
	case "R":
		return m, m.refresh()
	case "D":
		m.showSave(m.url)
		return m, nil
	case "X":
		m.showSave("")
		return m, nil
	}
	return m, nil
}

func (m *model) applyRefresh(msg refreshMsg) {
	if msg.err != nil {
		m.connected = false
		m.err = msg.err
		return
	}
	m.connected = true
	m.windows = make([]string, 0, len(msg.windows))
	var target *viewport.Snapshot
	for i := range msg.windows {
		s := &msg.windows[i]
		m.windows = append(m.windows, s.Window.Label)
		if s.Window.Label == m.window {
			target = s
		}
	}
	if target == nil && len(msg.windows) > 0 {
		target = &msg.windows[len(msg.windows)-1]
	}
	if target == nil {
		m.window = ""
		return
	}
	m.syncFrom(*target)
}

// syncFrom adopts the daemon's view of the target window.
func (m *model) syncFrom(s viewport.Snapshot) {
	m.window = s.Window.Label
	m.onTop = s.Window.AlwaysOnTop
	m.menuOpen = s.Window.Bounds.Width > m.cfg.Viewport.Width
	m.url = ""
	if s.Active == nil {
		return
	}
	if s.Active.URL != m.cfg.PlaceholderURL {
		m.url = s.Active.URL
	}
	m.mobile = s.Active.ClientIdentity != m.cfg.ClientIdentities.Desktop
	m.showBarcode = s.Active.Bounds.Height < m.cfg.WindowHeight()
}

func (m *model) cycleWindow() {
	if len(m.windows) == 0 {
		return
	}
	next := 0
	for i, label := range m.windows {
		if label == m.window {
			next = (i + 1) % len(m.windows)
			break
		}
	}
	m.window = m.windows[next]
}

func (m model) modeName(mobile bool) config.Mode {
	if mobile {
		return config.ModeMobile
	}
	return config.ModeDesktop
}

// act runs fn against the target window off the UI goroutine.
func (m model) act(status string, fn func(window string) error, apply func(*model)) tea.Cmd {
	window := m.window
	return func() tea.Msg {
		if window == "" {
			return actionMsg{err: errNoWindow}
		}
		return actionMsg{status: status, err: fn(window), apply: apply}
	}
}

func (m model) navigate(target string) tea.Cmd {
	if strings.TrimSpace(target) == "" {
		return func() tea.Msg { return actionMsg{err: errors.New("no URL to load; press u to enter one")} }
	}
	ctl := m.ctl
	return m.act("loaded "+target, func(window string) error {
		return ctl.Navigate(window, target)
	}, func(m *model) { m.url = target })
}

func (m model) switchMode(mobile bool) tea.Cmd {
	ctl := m.ctl
	current := m.url
	if current == "" {
		current = m.cfg.PlaceholderURL
	}
	return m.act("switched to "+string(m.modeName(mobile)), func(window string) error {
		_, err := ctl.SwitchClientIdentity(window, mobile, current)
		return err
	}, func(m *model) { m.mobile = mobile })
}

func (m model) setOnTop(enabled bool) tea.Cmd {
	ctl := m.ctl
	return m.act(fmt.Sprintf("always on top %s", onOff(enabled)), func(window string) error {
		return ctl.SetAlwaysOnTop(window, enabled)
	}, func(m *model) { m.onTop = enabled })
}

// setBarcode shows or hides the barcode strip by giving its height back to
// the viewport.
func (m model) setBarcode(visible bool) tea.Cmd {
	ctl := m.ctl
	width, height := m.cfg.Viewport.Width, m.cfg.WindowHeight()
	if visible {
		height = m.cfg.Viewport.Height
	}
	return m.act(fmt.Sprintf("barcode strip %s", onOff(visible)), func(window string) error {
		return ctl.ResizeViewport(window, width, height)
	}, func(m *model) { m.showBarcode = visible })
}

// setMenu widens the host window to make room for the control menu.
func (m model) setMenu(open bool) tea.Cmd {
	ctl := m.ctl
	width, height := m.cfg.Viewport.Width, m.cfg.WindowHeight()
	if open {
		width += m.cfg.MenuWidth
	}
	return m.act(fmt.Sprintf("menu %s", onOff(open)), func(window string) error {
		return ctl.ResizeWindow(window, width, height)
	}, func(m *model) { m.menuOpen = open })
}

func (m model) devtools() tea.Cmd {
	ctl := m.ctl
	return m.act("devtools opened", ctl.OpenDevtools, nil)
}

func (m model) scan(code string) tea.Cmd {
	ctl := m.ctl
	script := scanScript(code)
	return m.act("scanned "+code, func(window string) error {
		return ctl.RunScript(window, script)
	}, func(m *model) { m.history.add(code, m.now()) })
}

func (m model) newWindow() tea.Cmd {
	ctl := m.ctl
	mode := string(m.modeName(m.mobile))
	return func() tea.Msg {
		inst, err := ctl.CreateWindow("", mode)
		if err != nil {
			return actionMsg{err: err}
		}
		label := inst.Label
		return actionMsg{
			status:  "opened " + label,
			apply:   func(m *model) { m.window = label },
			refresh: true,
		}
	}
}

func (m *model) showSave(defaultURL string) {
	updated := cloneConfig(m.cfg)
	if updated == nil {
		m.err = errors.New("failed to copy configuration")
		return
	}
	updated.DefaultURL = strings.TrimSpace(defaultURL)
	m.save.show(m.cfg, updated)
}

func (m model) openPrompt(kind promptKind, initial string) (tea.Model, tea.Cmd) {
	m.prompt = newPrompt(kind, initial, m.width)
	return m, m.prompt.form.Init()
}

func (m model) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		m.prompt = nil
		return m, nil
	}

	form, cmd := m.prompt.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.prompt.form = f
	}

	switch m.prompt.form.State {
	case huh.StateCompleted:
		p := m.prompt
		m.prompt = nil
		return m, m.submitPrompt(p)
	case huh.StateAborted:
		m.prompt = nil
		return m, nil
	}
	return m, cmd
}

func (m model) submitPrompt(p *prompt) tea.Cmd {
	value := strings.TrimSpace(p.value)
	switch p.kind {
	case promptURL:
		return m.navigate(value)
	case promptScan:
		if value == "" {
			return nil
		}
		return m.scan(value)
	}
	return nil
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.window, len(m.windows), m.width)
	helpBar := renderHelpBar(m.width)

	contentHeight := m.height - lipgloss.Height(statusBar) - lipgloss.Height(helpBar)
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	if m.save.active() {
		content = m.save.view(m.width, contentHeight)
	} else {
		content = m.viewControls()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		content,
		helpBar,
	)
}

func (m model) viewControls() string {
	cfg := m.cfg
	url := m.url
	if url == "" {
		url = dimStyle.Render("(none)")
	}
	mode := "Desktop"
	if m.mobile {
		mode = "Mobile"
	}
	home := cfg.DefaultURL
	if home == "" {
		home = dimStyle.Render("(none, new windows open " + cfg.PlaceholderURL + ")")
	}

	viewportHeight := cfg.WindowHeight()
	if m.showBarcode {
		viewportHeight = cfg.Viewport.Height
	}
	windowWidth := cfg.Viewport.Width
	if m.menuOpen {
		windowWidth += cfg.MenuWidth
	}

	lines := []string{
		"",
		row("URL", url),
		row("Mode", mode),
		row("Default URL", home),
		toggle("On top", m.onTop, ""),
		toggle("Barcode", m.showBarcode, fmt.Sprintf("viewport %dx%d", cfg.Viewport.Width, viewportHeight)),
		toggle("Menu", m.menuOpen, fmt.Sprintf("window %dx%d", windowWidth, cfg.WindowHeight())),
		sectionStyle.Render("Recent scans"),
	}
	if m.history.len() == 0 {
		lines = append(lines, dimStyle.Render("No scans yet"))
	}
	for i, entry := range m.history.entries {
		lines = append(lines, fmt.Sprintf("%d  %s  %s", i+1, valueStyle.Render(entry.Code), dimStyle.Render(entry.At.Format("15:04:05"))))
	}

	if m.prompt != nil {
		lines = append(lines, "", m.prompt.form.View())
	}

	lines = append(lines, "")
	switch {
	case m.err != nil:
		lines = append(lines, errorStyle.Render("Error: "+m.err.Error()))
	case m.status != "":
		lines = append(lines, statusStyle.Render(m.status))
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
