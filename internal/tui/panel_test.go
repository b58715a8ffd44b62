package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/platform"
	"github.com/1broseidon/viewhost/internal/viewport"
)

type fakeController struct {
	calls   []string
	windows []viewport.Snapshot
	err     error
	reloads int
}

func (f *fakeController) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeController) CreateWindow(url, mode string) (*viewport.WindowInstance, error) {
	if err := f.record("create %q %s", url, mode); err != nil {
		return nil, err
	}
	id := uint32(len(f.windows) + 1)
	inst := viewport.WindowInstance{InstanceID: id, Label: viewport.WindowLabel(id)}
	f.windows = append(f.windows, viewport.Snapshot{Window: inst})
	return &inst, nil
}

func (f *fakeController) Navigate(window, url string) error {
	return f.record("navigate %s %s", window, url)
}

func (f *fakeController) RunScript(window, script string) error {
	return f.record("eval %s %s", window, script)
}

func (f *fakeController) OpenDevtools(window string) error {
	return f.record("devtools %s", window)
}

func (f *fakeController) ResizeWindow(window string, width, height int) error {
	return f.record("resize-window %s %dx%d", window, width, height)
}

func (f *fakeController) ResizeViewport(window string, width, height int) error {
	return f.record("resize-viewport %s %dx%d", window, width, height)
}

func (f *fakeController) SetAlwaysOnTop(window string, enabled bool) error {
	return f.record("on-top %s %t", window, enabled)
}

func (f *fakeController) SwitchClientIdentity(window string, mobile bool, currentURL string) (*viewport.ChildViewport, error) {
	if err := f.record("switch %s %t %s", window, mobile, currentURL); err != nil {
		return nil, err
	}
	return &viewport.ChildViewport{Label: viewport.Recreated(1).Label(), URL: currentURL}, nil
}

func (f *fakeController) ListWindows() ([]viewport.Snapshot, error) {
	return f.windows, nil
}

func (f *fakeController) Reload() error {
	f.reloads++
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+k":
		return tea.KeyMsg{Type: tea.KeyCtrlK}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step feeds msg to m and runs every command it yields until none is left.
func step(m model, msg tea.Msg) model {
	next, cmd := m.Update(msg)
	m = next.(model)
	for cmd != nil {
		next, cmd = m.Update(cmd())
		m = next.(model)
	}
	return m
}

func mobileWindow(cfg *config.Config) viewport.Snapshot {
	return viewport.Snapshot{
		Window: viewport.WindowInstance{
			InstanceID: 1,
			Label:      "window-1",
			Bounds:     platform.Rect{X: 100, Y: 100, Width: 375, Height: 667},
		},
		Active: &viewport.ChildViewport{
			Label:          "webview-1",
			Bounds:         platform.Rect{Width: 375, Height: 617},
			URL:            "https://example.com/",
			ClientIdentity: cfg.ClientIdentities.Mobile,
		},
	}
}

func newTestModel(t *testing.T) (model, *fakeController) {
	t.Helper()
	cfg := config.DefaultConfig()
	ctl := &fakeController{windows: []viewport.Snapshot{mobileWindow(cfg)}}
	m := newModel(ctl, filepath.Join(t.TempDir(), "config.yaml"), cfg, "")
	m = step(m, m.Init()())
	return m, ctl
}

func TestPanel_SyncsFromDaemon(t *testing.T) {
	m, _ := newTestModel(t)
	if !m.connected || m.window != "window-1" {
		t.Fatalf("connected=%v window=%q", m.connected, m.window)
	}
	if m.url != "https://example.com/" || !m.mobile || !m.showBarcode || m.menuOpen || m.onTop {
		t.Fatalf("state = url:%q mobile:%v barcode:%v menu:%v onTop:%v", m.url, m.mobile, m.showBarcode, m.menuOpen, m.onTop)
	}
}

func TestPanel_Toggles(t *testing.T) {
	m, ctl := newTestModel(t)

	m = step(m, key("t"))
	m = step(m, key("b"))
	m = step(m, key("b"))
	m = step(m, key("ctrl+k"))
	m = step(m, key("esc"))
	m = step(m, key("m"))
	m = step(m, key("d"))
	m = step(m, key("enter"))

	want := []string{
		"on-top window-1 true",
		"resize-viewport window-1 375x667",
		"resize-viewport window-1 375x617",
		"resize-window window-1 725x667",
		"resize-window window-1 375x667",
		"switch window-1 false https://example.com/",
		"devtools window-1",
		"navigate window-1 https://example.com/",
	}
	if strings.Join(ctl.calls, "\n") != strings.Join(want, "\n") {
		t.Fatalf("calls:\n%s\nwant:\n%s", strings.Join(ctl.calls, "\n"), strings.Join(want, "\n"))
	}
	if !m.onTop || !m.showBarcode || m.menuOpen || m.mobile {
		t.Fatalf("state = onTop:%v barcode:%v menu:%v mobile:%v", m.onTop, m.showBarcode, m.menuOpen, m.mobile)
	}
	if m.err != nil {
		t.Fatalf("unexpected error: %v", m.err)
	}
}

func TestPanel_FailedActionKeepsState(t *testing.T) {
	m, ctl := newTestModel(t)
	ctl.err = errors.New("daemon error [RESIZE_FAILED]: boom")

	m = step(m, key("t"))
	if m.onTop {
		t.Fatal("onTop flipped despite failure")
	}
	if m.err == nil || !strings.Contains(m.err.Error(), "RESIZE_FAILED") {
		t.Fatalf("err = %v", m.err)
	}
}

func TestPanel_NoWindow(t *testing.T) {
	cfg := config.DefaultConfig()
	ctl := &fakeController{}
	m := newModel(ctl, "", cfg, "")
	m = step(m, m.Init()())

	m = step(m, key("t"))
	if !errors.Is(m.err, errNoWindow) {
		t.Fatalf("err = %v, want errNoWindow", m.err)
	}
	if len(ctl.calls) != 0 {
		t.Fatalf("calls = %v", ctl.calls)
	}

	m = step(m, key("n"))
	if m.window != "window-1" || m.err != nil {
		t.Fatalf("after new window: window=%q err=%v", m.window, m.err)
	}
	if ctl.calls[0] != `create "" mobile` {
		t.Fatalf("create call = %q", ctl.calls[0])
	}
}

func TestPanel_HomeRequiresDefaultURL(t *testing.T) {
	m, ctl := newTestModel(t)
	m = step(m, key("h"))
	if m.err == nil || len(ctl.calls) != 0 {
		t.Fatalf("err=%v calls=%v", m.err, ctl.calls)
	}

	m.cfg.DefaultURL = "https://home.example"
	m = step(m, key("h"))
	if m.url != "https://home.example" || ctl.calls[0] != "navigate window-1 https://home.example" {
		t.Fatalf("url=%q calls=%v", m.url, ctl.calls)
	}
}

func TestPanel_ScanRecordsHistory(t *testing.T) {
	m, ctl := newTestModel(t)
	fixed := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m = step(m, m.submitPrompt(&prompt{kind: promptScan, value: " 8801234'5 "}))
	if got := ctl.calls[0]; got != `eval window-1 scanBarcode('8801234\'5')` {
		t.Fatalf("scan call = %q", got)
	}
	entry, ok := m.history.get(0)
	if !ok || entry.Code != "8801234'5" || !entry.At.Equal(fixed) {
		t.Fatalf("history[0] = %+v, %v", entry, ok)
	}

	if cmd := m.submitPrompt(&prompt{kind: promptScan, value: "   "}); cmd != nil {
		t.Fatal("blank scan should not produce a command")
	}
}

func TestPanel_URLPromptNavigates(t *testing.T) {
	m, ctl := newTestModel(t)
	m = step(m, m.submitPrompt(&prompt{kind: promptURL, value: "https://example.org/a"}))
	if m.url != "https://example.org/a" || ctl.calls[0] != "navigate window-1 https://example.org/a" {
		t.Fatalf("url=%q calls=%v", m.url, ctl.calls)
	}
}

func TestPanel_CycleWindow(t *testing.T) {
	m, ctl := newTestModel(t)
	second := mobileWindow(m.cfg)
	second.Window.InstanceID = 2
	second.Window.Label = "window-2"
	ctl.windows = append(ctl.windows, second)
	m = step(m, key("R"))
	if m.window != "window-1" {
		t.Fatalf("refresh moved target to %q", m.window)
	}
	m = step(m, key("w"))
	if m.window != "window-2" {
		t.Fatalf("window = %q, want window-2", m.window)
	}
	m = step(m, key("w"))
	if m.window != "window-1" {
		t.Fatalf("window = %q, want window-1", m.window)
	}
}

func TestPanel_CycleToBlankWindowDropsURL(t *testing.T) {
	m, ctl := newTestModel(t)
	second := mobileWindow(m.cfg)
	second.Window.InstanceID = 2
	second.Window.Label = "window-2"
	blank := *second.Active
	blank.Label = "webview-2"
	blank.URL = m.cfg.PlaceholderURL
	second.Active = &blank
	ctl.windows = append(ctl.windows, second)

	m = step(m, key("R"))
	m = step(m, key("w"))
	if m.window != "window-2" || m.url != "" {
		t.Fatalf("window=%q url=%q, want window-2 with no URL", m.window, m.url)
	}

	m = step(m, key("m"))
	want := "switch window-2 false " + m.cfg.PlaceholderURL
	if len(ctl.calls) != 1 || ctl.calls[0] != want {
		t.Fatalf("calls = %v, want [%s]", ctl.calls, want)
	}

	m = step(m, key("w"))
	if m.window != "window-1" || m.url != "https://example.com/" {
		t.Fatalf("window=%q url=%q after cycling back", m.window, m.url)
	}
}

func TestPanel_SetDefaultURLSavesConfig(t *testing.T) {
	m, ctl := newTestModel(t)

	m = step(m, key("D"))
	if !m.save.active() || m.save.phase != savePreview {
		t.Fatalf("save phase = %v", m.save.phase)
	}
	m = step(m, key("enter"))
	if m.save.err != nil {
		t.Fatalf("save error: %v", m.save.err)
	}
	if m.cfg.DefaultURL != "https://example.com/" {
		t.Fatalf("cfg.DefaultURL = %q", m.cfg.DefaultURL)
	}
	if ctl.reloads != 1 {
		t.Fatalf("reloads = %d", ctl.reloads)
	}
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "default_url: https://example.com/") {
		t.Fatalf("saved config:\n%s", data)
	}

	m = step(m, key("x"))
	if m.save.active() {
		t.Fatal("result should dismiss on any key")
	}

	m = step(m, key("D"))
	if m.save.phase != saveResult || m.save.err == nil {
		t.Fatalf("unchanged config should report no changes, phase=%v err=%v", m.save.phase, m.save.err)
	}
}

func TestScanHistory_Capped(t *testing.T) {
	var h scanHistory
	base := time.Unix(0, 0)
	for i := 0; i < 12; i++ {
		h.add(fmt.Sprintf("code-%d", i), base.Add(time.Duration(i)*time.Second))
	}
	if h.len() != maxHistory {
		t.Fatalf("len = %d, want %d", h.len(), maxHistory)
	}
	if e, _ := h.get(0); e.Code != "code-11" {
		t.Fatalf("newest = %q", e.Code)
	}
	if e, _ := h.get(maxHistory - 1); e.Code != "code-4" {
		t.Fatalf("oldest = %q", e.Code)
	}
	if _, ok := h.get(maxHistory); ok {
		t.Fatal("get past end should fail")
	}
}

func TestScanScript(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"12345", `scanBarcode('12345')`},
		{`a'b`, `scanBarcode('a\'b')`},
		{`a\b`, `scanBarcode('a\\b')`},
		{"a\nb", `scanBarcode('a\nb')`},
	}
	for _, tt := range tests {
		if got := scanScript(tt.code); got != tt.want {
			t.Errorf("scanScript(%q) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestComputeDiffLines(t *testing.T) {
	a := config.DefaultConfig()
	b := cloneConfig(a)
	if lines := computeDiffLines(a, b); lines != nil {
		t.Fatalf("identical configs diff = %v", lines)
	}
	b.DefaultURL = "https://example.com"
	lines := computeDiffLines(a, b)
	var added bool
	for _, l := range lines {
		if l.kind == diffAdded && strings.Contains(l.text, "default_url: https://example.com") {
			added = true
		}
	}
	if !added {
		t.Fatalf("diff = %+v", lines)
	}
}
