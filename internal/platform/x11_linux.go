//go:build linux

package platform

import (
	"fmt"

	"github.com/1broseidon/viewhost/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// X11Toolkit hosts windows as top-level X windows and viewports as child
// windows carrying _VIEWHOST_* properties for the embedded renderer.
type X11Toolkit struct {
	conn    *x11.Connection
	windows map[string]xproto.Window
}

var (
	_ Toolkit          = (*X11Toolkit)(nil)
	_ WorkAreaProvider = (*X11Toolkit)(nil)
)

// NewX11Toolkit wraps an existing X11 connection.
func NewX11Toolkit(conn *x11.Connection) *X11Toolkit {
	return &X11Toolkit{conn: conn, windows: make(map[string]xproto.Window)}
}

// NewX11ToolkitFromDisplay opens a fresh X11 connection. An empty display
// uses $DISPLAY.
func NewX11ToolkitFromDisplay(display string) (*X11Toolkit, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewX11Toolkit(conn), nil
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (t *X11Toolkit) XUtil() *xgbutil.XUtil {
	if t == nil || t.conn == nil {
		return nil
	}
	return t.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (t *X11Toolkit) RootWindow() xproto.Window {
	if t == nil || t.conn == nil {
		return 0
	}
	return t.conn.Root
}

// EventLoop starts the X11 event loop (blocking).
func (t *X11Toolkit) EventLoop() {
	if t != nil && t.conn != nil {
		t.conn.EventLoop()
	}
}

// Close stops the event loop and disconnects.
func (t *X11Toolkit) Close() {
	if t != nil && t.conn != nil {
		t.conn.Quit()
		t.conn.Close()
	}
}

// WorkArea returns the usable area of the monitor under the pointer.
func (t *X11Toolkit) WorkArea() (Rect, error) {
	conn, err := t.connection()
	if err != nil {
		return Rect{}, err
	}
	mon, err := conn.GetActiveMonitor()
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: mon.X, Y: mon.Y, Width: mon.Width, Height: mon.Height}, nil
}

// CreateWindow creates and maps a host window.
func (t *X11Toolkit) CreateWindow(spec WindowSpec) error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	if _, ok := t.windows[spec.Label]; ok {
		return fmt.Errorf("window %q: %w", spec.Label, ErrLabelInUse)
	}

	win, err := conn.CreateHostWindow(spec.Label, spec.Title, geometry(spec.Bounds), spec.AlwaysOnTop)
	if err != nil {
		return err
	}
	t.windows[spec.Label] = win.Id

	// Activation is a hint; the window exists either way.
	_ = conn.FocusWindow(win.Id)
	return nil
}

// CloseWindow destroys a host window and every surface inside it.
func (t *X11Toolkit) CloseWindow(label string) error {
	conn, id, err := t.window(label)
	if err != nil {
		return err
	}
	delete(t.windows, label)
	return conn.Destroy(id)
}

// Windows lists host windows that still exist on the server. Windows the
// user closed are dropped.
func (t *X11Toolkit) Windows() ([]string, error) {
	conn, err := t.connection()
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(t.windows))
	for label, id := range t.windows {
		if _, err := conn.WindowGeometry(id); err != nil {
			delete(t.windows, label)
			continue
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// ResizeWindow asks the window manager to resize a host window.
func (t *X11Toolkit) ResizeWindow(label string, width, height int) error {
	conn, id, err := t.window(label)
	if err != nil {
		return err
	}
	return conn.ConfigureChecked(id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		uint32(width), uint32(height))
}

// SetAlwaysOnTop toggles _NET_WM_STATE_ABOVE.
func (t *X11Toolkit) SetAlwaysOnTop(label string, enabled bool) error {
	conn, id, err := t.window(label)
	if err != nil {
		return err
	}
	return conn.SetAbove(id, enabled)
}

// AttachViewport creates a surface inside the host window and publishes its
// label, URL and client identity.
func (t *X11Toolkit) AttachViewport(window string, spec ViewportSpec) error {
	conn, parent, err := t.window(window)
	if err != nil {
		return err
	}
	if _, ok := t.surface(conn, parent, spec.Label); ok {
		return fmt.Errorf("viewport %q: %w", spec.Label, ErrLabelInUse)
	}

	win, err := conn.CreateSurface(parent, geometry(spec.Bounds))
	if err != nil {
		return err
	}
	return publishSurface(conn, win.Id, spec)
}

// surfaceWriter is the part of the X connection that publishes a surface.
type surfaceWriter interface {
	SetStringProp(windowID xproto.Window, prop, value string) error
	SetCardinalProp(windowID xproto.Window, prop string, value uint) error
	Destroy(windowID xproto.Window) error
}

// publishSurface writes the renderer properties onto a new surface. A
// surface missing any of them is destroyed.
func publishSurface(w surfaceWriter, id xproto.Window, spec ViewportSpec) error {
	if err := writeSurfaceProps(w, id, spec); err != nil {
		_ = w.Destroy(id)
		return err
	}
	return nil
}

func writeSurfaceProps(w surfaceWriter, id xproto.Window, spec ViewportSpec) error {
	props := []struct{ name, value string }{
		{x11.PropLabel, spec.Label},
		{x11.PropClientIdentity, spec.ClientIdentity},
		{x11.PropURL, spec.URL},
	}
	for _, p := range props {
		if err := w.SetStringProp(id, p.name, p.value); err != nil {
			return err
		}
	}
	if spec.Devtools {
		return w.SetCardinalProp(id, x11.PropDevtools, 1)
	}
	return nil
}

// CloseViewport destroys a surface.
func (t *X11Toolkit) CloseViewport(window, label string) error {
	conn, id, err := t.viewport(window, label)
	if err != nil {
		return err
	}
	return conn.Destroy(id)
}

// Viewports reads the labelled surfaces currently attached to a host window.
func (t *X11Toolkit) Viewports(window string) ([]Surface, error) {
	conn, parent, err := t.window(window)
	if err != nil {
		return nil, err
	}
	children, err := conn.Children(parent)
	if err != nil {
		return nil, t.lost(conn, window, parent, err)
	}

	surfaces := make([]Surface, 0, len(children))
	for _, child := range children {
		label, ok := conn.StringProp(child, x11.PropLabel)
		if !ok {
			continue
		}
		g, err := conn.WindowGeometry(child)
		if err != nil {
			continue
		}
		url, _ := conn.StringProp(child, x11.PropURL)
		surfaces = append(surfaces, Surface{
			Label:  label,
			Bounds: Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height},
			URL:    url,
		})
	}
	return surfaces, nil
}

// ResizeViewport resizes a surface in place.
func (t *X11Toolkit) ResizeViewport(window, label string, width, height int) error {
	conn, id, err := t.viewport(window, label)
	if err != nil {
		return err
	}
	return conn.ConfigureChecked(id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		uint32(width), uint32(height))
}

// MoveViewport moves a surface within its host window.
func (t *X11Toolkit) MoveViewport(window, label string, x, y int) error {
	conn, id, err := t.viewport(window, label)
	if err != nil {
		return err
	}
	return conn.ConfigureChecked(id,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		uint32(int32(x)), uint32(int32(y)))
}

// Load publishes a new navigation target.
func (t *X11Toolkit) Load(window, label, url string) error {
	conn, id, err := t.viewport(window, label)
	if err != nil {
		return err
	}
	return conn.SetStringProp(id, x11.PropURL, url)
}

// Eval publishes a script for the renderer to run.
func (t *X11Toolkit) Eval(window, label, script string) error {
	conn, id, err := t.viewport(window, label)
	if err != nil {
		return err
	}
	return conn.SetStringProp(id, x11.PropEval, script)
}

// OpenDevtools requests the renderer's inspector.
func (t *X11Toolkit) OpenDevtools(window, label string) error {
	conn, id, err := t.viewport(window, label)
	if err != nil {
		return err
	}
	return conn.SetCardinalProp(id, x11.PropDevtools, 1)
}

func (t *X11Toolkit) connection() (*x11.Connection, error) {
	if t == nil || t.conn == nil {
		return nil, fmt.Errorf("x11 toolkit connection is nil")
	}
	return t.conn, nil
}

func (t *X11Toolkit) window(label string) (*x11.Connection, xproto.Window, error) {
	conn, err := t.connection()
	if err != nil {
		return nil, 0, err
	}
	id, ok := t.windows[label]
	if !ok {
		return nil, 0, fmt.Errorf("window %q: %w", label, ErrNoSuchWindow)
	}
	return conn, id, nil
}

// lost returns err unless the host window no longer exists on the server,
// in which case the window is dropped and ErrNoSuchWindow is returned.
func (t *X11Toolkit) lost(g geometryReader, label string, id xproto.Window, err error) error {
	if _, gerr := g.WindowGeometry(id); gerr == nil {
		return err
	}
	delete(t.windows, label)
	return fmt.Errorf("window %q: %w", label, ErrNoSuchWindow)
}

type geometryReader interface {
	WindowGeometry(windowID xproto.Window) (x11.Geometry, error)
}

func (t *X11Toolkit) viewport(window, label string) (*x11.Connection, xproto.Window, error) {
	conn, parent, err := t.window(window)
	if err != nil {
		return nil, 0, err
	}
	id, ok := t.surface(conn, parent, label)
	if !ok {
		return nil, 0, fmt.Errorf("viewport %q in window %q: %w", label, window, ErrNoSuchSurface)
	}
	return conn, id, nil
}

func (t *X11Toolkit) surface(conn *x11.Connection, parent xproto.Window, label string) (xproto.Window, bool) {
	children, err := conn.Children(parent)
	if err != nil {
		return 0, false
	}
	for _, child := range children {
		if got, ok := conn.StringProp(child, x11.PropLabel); ok && got == label {
			return child, true
		}
	}
	return 0, false
}

func geometry(r Rect) x11.Geometry {
	return x11.Geometry{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func openX11(display string) (Toolkit, error) {
	return NewX11ToolkitFromDisplay(display)
}
