package viewport

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/1broseidon/viewhost/internal/ids"
	"github.com/1broseidon/viewhost/internal/platform"
)

// DefaultPlaceholderURL is loaded when no navigation target is known.
const DefaultPlaceholderURL = "about:blank"

// Layout holds the geometry and defaults used for new windows.
type Layout struct {
	Title         string
	ViewportWidth int
	// ViewportHeight excludes the control strip below the viewport.
	ViewportHeight     int
	ControlStripHeight int
	OriginX            int
	OriginY            int
	CascadeOffset      int
	CascadeSteps       int
	PlaceholderURL     string
	Devtools           bool
	AlwaysOnTop        bool
}

// DefaultLayout matches a phone-sized viewport above a barcode strip.
func DefaultLayout() Layout {
	return Layout{
		Title:              "Mobile WebView",
		ViewportWidth:      375,
		ViewportHeight:     617,
		ControlStripHeight: 50,
		OriginX:            100,
		OriginY:            100,
		CascadeOffset:      30,
		CascadeSteps:       10,
		PlaceholderURL:     DefaultPlaceholderURL,
	}
}

// Snapshot describes a managed window and what the toolkit reports inside it.
type Snapshot struct {
	Window    WindowInstance  `json:"window"`
	Active    *ChildViewport  `json:"active,omitempty"`
	Viewports []ChildViewport `json:"viewports"`
}

type record struct {
	kind           Kind
	url            string
	clientIdentity string
}

type managedWindow struct {
	instance  WindowInstance
	viewports map[string]*record
}

// Manager performs every mutating operation on host windows and their child
// viewports. It is not safe for concurrent use: all calls must come from the
// goroutine that owns the toolkit. Only the allocator is shared.
type Manager struct {
	toolkit platform.Toolkit
	ids     ids.Allocator
	layout  Layout
	logger  *slog.Logger
	windows map[string]*managedWindow
}

// NewManager creates a Manager. A nil logger uses slog.Default().
func NewManager(toolkit platform.Toolkit, alloc ids.Allocator, layout Layout, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if layout.PlaceholderURL == "" {
		layout.PlaceholderURL = DefaultPlaceholderURL
	}
	return &Manager{
		toolkit: toolkit,
		ids:     alloc,
		layout:  layout,
		logger:  logger,
		windows: make(map[string]*managedWindow),
	}
}

// SetLayout replaces the defaults used by later operations.
func (m *Manager) SetLayout(layout Layout) {
	if layout.PlaceholderURL == "" {
		layout.PlaceholderURL = DefaultPlaceholderURL
	}
	m.layout = layout
}

// Layout returns the current defaults.
func (m *Manager) Layout() Layout {
	return m.layout
}

// CreateWindow opens a host window sized for the viewport plus the control
// strip and attaches its base viewport. An empty url loads the placeholder.
func (m *Manager) CreateWindow(rawURL, clientIdentity string) (WindowInstance, error) {
	target, err := m.resolveURL(rawURL)
	if err != nil {
		return WindowInstance{}, err
	}

	id := m.ids.NextWindowID()
	label := WindowLabel(id)
	bounds := m.windowBounds(id)

	err = m.toolkit.CreateWindow(platform.WindowSpec{
		Label:       label,
		Title:       m.layout.Title,
		Bounds:      bounds,
		AlwaysOnTop: m.layout.AlwaysOnTop,
	})
	if err != nil {
		return WindowInstance{}, hostErr(OpCreate, label, err)
	}

	kind := Base(id)
	err = m.toolkit.AttachViewport(label, platform.ViewportSpec{
		Label:          kind.Label(),
		Bounds:         platform.Rect{Width: m.layout.ViewportWidth, Height: m.layout.ViewportHeight},
		URL:            target,
		ClientIdentity: clientIdentity,
		Devtools:       m.layout.Devtools,
	})
	if err != nil {
		if cerr := m.toolkit.CloseWindow(label); cerr != nil {
			m.logger.Warn("failed to close window after viewport attach failure",
				"window", label, "error", cerr)
		}
		return WindowInstance{}, hostErr(OpCreate, label, err)
	}

	inst := WindowInstance{
		InstanceID:  id,
		Label:       label,
		Bounds:      bounds,
		AlwaysOnTop: m.layout.AlwaysOnTop,
	}
	m.windows[label] = &managedWindow{
		instance: inst,
		viewports: map[string]*record{
			kind.Label(): {kind: kind, url: target, clientIdentity: clientIdentity},
		},
	}

	m.logger.Info("window created", "window", label, "viewport", kind.Label(), "url", target)
	return inst, nil
}

// Navigate loads url into the active viewport.
func (m *Manager) Navigate(window, rawURL string) error {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return err
	}
	vp, err := m.Active(window)
	if err != nil {
		return err
	}
	if err := m.toolkit.Load(window, vp.Label, target); err != nil {
		return hostErr(OpNavigate, window, err)
	}
	m.windows[window].viewports[vp.Label].url = target
	m.logger.Debug("navigated", "window", window, "viewport", vp.Label, "url", target)
	return nil
}

// RunScript submits script to the active viewport. Its result is not
// captured.
func (m *Manager) RunScript(window, script string) error {
	vp, err := m.Active(window)
	if err != nil {
		return err
	}
	if err := m.toolkit.Eval(window, vp.Label, script); err != nil {
		return hostErr(OpEval, window, err)
	}
	return nil
}

// ResizeViewport resizes the active viewport. The host window is untouched.
func (m *Manager) ResizeViewport(window string, width, height int) error {
	vp, err := m.Active(window)
	if err != nil {
		return err
	}
	if err := m.toolkit.ResizeViewport(window, vp.Label, width, height); err != nil {
		return hostErr(OpResize, window, err)
	}
	return nil
}

// ResizeWindow resizes the host window. The viewport is untouched.
func (m *Manager) ResizeWindow(window string, width, height int) error {
	if err := m.toolkit.ResizeWindow(window, width, height); err != nil {
		return hostErr(OpResize, window, err)
	}
	if w, ok := m.windows[window]; ok {
		w.instance.Bounds.Width = width
		w.instance.Bounds.Height = height
	}
	return nil
}

// RepositionViewport moves the active viewport within its host window.
func (m *Manager) RepositionViewport(window string, x, y int) error {
	vp, err := m.Active(window)
	if err != nil {
		return err
	}
	if err := m.toolkit.MoveViewport(window, vp.Label, x, y); err != nil {
		return hostErr(OpMove, window, err)
	}
	return nil
}

// SetAlwaysOnTop toggles the host window's stacking.
func (m *Manager) SetAlwaysOnTop(window string, enabled bool) error {
	if err := m.toolkit.SetAlwaysOnTop(window, enabled); err != nil {
		return hostErr(OpAlwaysOnTop, window, err)
	}
	if w, ok := m.windows[window]; ok {
		w.instance.AlwaysOnTop = enabled
	}
	return nil
}

// OpenDevtools shows diagnostic tooling for the active viewport.
func (m *Manager) OpenDevtools(window string) error {
	vp, err := m.Active(window)
	if err != nil {
		return err
	}
	if err := m.toolkit.OpenDevtools(window, vp.Label); err != nil {
		return hostErr(OpDevtools, window, err)
	}
	return nil
}

// SwitchClientIdentity replaces the active viewport with one advertising
// clientIdentity, at the same geometry, loading currentURL (or the
// placeholder when empty).
//
// Closing the old viewport is best-effort: a surface that refuses to close
// stays attached but is outranked by the replacement. If the URL is invalid
// or the new attach fails, the window is left without a replacement and the
// error is returned.
func (m *Manager) SwitchClientIdentity(window, clientIdentity, currentURL string) (ChildViewport, error) {
	old, err := m.Active(window)
	if err != nil {
		return ChildViewport{}, err
	}
	bounds := old.Bounds

	if err := m.toolkit.CloseViewport(window, old.Label); err != nil {
		m.logger.Warn("old viewport did not close, continuing with recreation",
			"window", window, "viewport", old.Label, "error", err)
	}

	kind := Recreated(m.ids.NextRecreationID())

	target, err := m.resolveURL(currentURL)
	if err != nil {
		return ChildViewport{}, err
	}

	err = m.toolkit.AttachViewport(window, platform.ViewportSpec{
		Label:          kind.Label(),
		Bounds:         bounds,
		URL:            target,
		ClientIdentity: clientIdentity,
		Devtools:       m.layout.Devtools,
	})
	if err != nil {
		return ChildViewport{}, hostErr(OpRecreate, window, err)
	}

	m.windows[window].viewports[kind.Label()] = &record{
		kind:           kind,
		url:            target,
		clientIdentity: clientIdentity,
	}

	m.logger.Info("viewport recreated",
		"window", window, "old", old.Label, "new", kind.Label(), "url", target)
	return ChildViewport{
		Label:          kind.Label(),
		Kind:           kind,
		Bounds:         bounds,
		URL:            target,
		ClientIdentity: clientIdentity,
	}, nil
}

// CloseWindow destroys a host window and forgets it.
func (m *Manager) CloseWindow(window string) error {
	if err := m.toolkit.CloseWindow(window); err != nil {
		return hostErr(OpClose, window, err)
	}
	delete(m.windows, window)
	m.logger.Info("window closed", "window", window)
	return nil
}

// Forget drops a window from the registry without touching the toolkit.
// It reports whether the window was known.
func (m *Manager) Forget(window string) bool {
	if _, ok := m.windows[window]; !ok {
		return false
	}
	delete(m.windows, window)
	return true
}

// Reconcile forgets windows the toolkit no longer reports, such as ones the
// user closed. It returns the labels that were dropped.
func (m *Manager) Reconcile() ([]string, error) {
	live, err := m.toolkit.Windows()
	if err != nil {
		return nil, err
	}
	alive := make(map[string]bool, len(live))
	for _, label := range live {
		alive[label] = true
	}

	var dropped []string
	for label := range m.windows {
		if !alive[label] && m.Forget(label) {
			dropped = append(dropped, label)
		}
	}
	sort.Strings(dropped)
	return dropped, nil
}

// Active resolves the active viewport of a window.
func (m *Manager) Active(window string) (ChildViewport, error) {
	attached, err := m.attached(window)
	if err != nil {
		return ChildViewport{}, err
	}
	vp, err := FindActive(attached)
	if err != nil {
		return ChildViewport{}, fmt.Errorf("window %q: %w", window, err)
	}
	return vp, nil
}

// Windows returns a snapshot of every managed window, ordered by instance id.
func (m *Manager) Windows() []Snapshot {
	out := make([]Snapshot, 0, len(m.windows))
	for label := range m.windows {
		snap, err := m.Describe(label)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Window.InstanceID < out[j].Window.InstanceID
	})
	return out
}

// Describe returns a snapshot of one managed window.
func (m *Manager) Describe(window string) (Snapshot, error) {
	w, ok := m.windows[window]
	if !ok {
		return Snapshot{}, fmt.Errorf("window %q: %w", window, ErrViewportNotFound)
	}
	snap := Snapshot{Window: w.instance}
	attached, err := m.attached(window)
	if err != nil {
		return snap, nil
	}
	snap.Viewports = attached
	if vp, err := FindActive(attached); err == nil {
		snap.Active = &vp
	}
	return snap, nil
}

// attached lists the manager-created viewports the toolkit still reports for
// window. Records whose surface is gone are pruned.
func (m *Manager) attached(window string) ([]ChildViewport, error) {
	w, ok := m.windows[window]
	if !ok {
		return nil, fmt.Errorf("window %q is not managed: %w", window, ErrViewportNotFound)
	}
	surfaces, err := m.toolkit.Viewports(window)
	if err != nil {
		if errors.Is(err, platform.ErrNoSuchWindow) {
			return nil, fmt.Errorf("window %q is gone: %w", window, ErrViewportNotFound)
		}
		return nil, err
	}

	seen := make(map[string]bool, len(surfaces))
	out := make([]ChildViewport, 0, len(surfaces))
	for _, s := range surfaces {
		rec, ok := w.viewports[s.Label]
		if !ok {
			continue
		}
		seen[s.Label] = true
		url := s.URL
		if url == "" {
			url = rec.url
		}
		out = append(out, ChildViewport{
			Label:          s.Label,
			Kind:           rec.kind,
			Bounds:         s.Bounds,
			URL:            url,
			ClientIdentity: rec.clientIdentity,
		})
	}
	for label := range w.viewports {
		if !seen[label] {
			delete(w.viewports, label)
		}
	}
	return out, nil
}

func (m *Manager) resolveURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == m.layout.PlaceholderURL {
		return m.layout.PlaceholderURL, nil
	}
	return ValidateURL(s)
}

func (m *Manager) windowBounds(id uint32) platform.Rect {
	steps := m.layout.CascadeSteps
	if steps <= 0 {
		steps = 1
	}
	step := int((id - 1) % uint32(steps))
	x := m.layout.OriginX + step*m.layout.CascadeOffset
	y := m.layout.OriginY + step*m.layout.CascadeOffset

	if wa, ok := m.toolkit.(platform.WorkAreaProvider); ok {
		if area, err := wa.WorkArea(); err == nil {
			x += area.X
			y += area.Y
		}
	}

	return platform.Rect{
		X:      x,
		Y:      y,
		Width:  m.layout.ViewportWidth,
		Height: m.layout.ViewportHeight + m.layout.ControlStripHeight,
	}
}
