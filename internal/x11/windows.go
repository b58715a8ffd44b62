package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Properties published on viewport surfaces. The embedded renderer that
// reparents into a surface watches these for PropertyNotify.
const (
	PropLabel          = "_VIEWHOST_LABEL"
	PropURL            = "_VIEWHOST_URL"
	PropClientIdentity = "_VIEWHOST_CLIENT_IDENTITY"
	PropEval           = "_VIEWHOST_EVAL"
	PropDevtools       = "_VIEWHOST_DEVTOOLS"
)

// WMClass is the WM_CLASS set on every host window.
var WMClass = icccm.WmClass{Instance: "viewhost", Class: "Viewhost"}

// Geometry is a window position relative to its parent plus its size.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// CreateHostWindow creates and maps a top-level window.
func (c *Connection) CreateHostWindow(label, title string, g Geometry, above bool) (*xwindow.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, g.X, g.Y, g.Width, g.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0xffffff, xproto.EventMaskStructureNotify)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	if err := c.SetStringProp(win.Id, PropLabel, label); err != nil {
		win.Destroy()
		return nil, err
	}
	if err := ewmh.WmNameSet(c.XUtil, win.Id, title); err != nil {
		// Fall back to the ICCCM name for window managers without EWMH.
		_ = icccm.WmNameSet(c.XUtil, win.Id, title)
	}
	class := WMClass
	_ = icccm.WmClassSet(c.XUtil, win.Id, &class)

	if above {
		// Before mapping the state is set directly; the WM reads it on map.
		if err := ewmh.WmStateSet(c.XUtil, win.Id, []string{"_NET_WM_STATE_ABOVE"}); err != nil {
			win.Destroy()
			return nil, fmt.Errorf("failed to set _NET_WM_STATE_ABOVE: %w", err)
		}
	}

	win.Map()
	return win, nil
}

// CreateSurface creates and maps a child window inside parent.
func (c *Connection) CreateSurface(parent xproto.Window, g Geometry) (*xwindow.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate surface id: %w", err)
	}

	err = win.CreateChecked(parent, g.X, g.Y, g.Width, g.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0xffffff, xproto.EventMaskStructureNotify|xproto.EventMaskPropertyChange)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	win.Map()
	return win, nil
}

// SetAbove adds or removes _NET_WM_STATE_ABOVE on a mapped window.
func (c *Connection) SetAbove(windowID xproto.Window, enabled bool) error {
	action := ewmh.StateRemove
	if enabled {
		action = ewmh.StateAdd
	}
	return ewmh.WmStateReq(c.XUtil, windowID, action, "_NET_WM_STATE_ABOVE")
}

// SetStringProp replaces a UTF8_STRING property.
func (c *Connection) SetStringProp(windowID xproto.Window, prop, value string) error {
	if err := xprop.ChangeProp(c.XUtil, windowID, 8, prop, "UTF8_STRING", []byte(value)); err != nil {
		return fmt.Errorf("failed to set %s: %w", prop, err)
	}
	return nil
}

// SetCardinalProp replaces a 32-bit CARDINAL property.
func (c *Connection) SetCardinalProp(windowID xproto.Window, prop string, value uint) error {
	if err := xprop.ChangeProp32(c.XUtil, windowID, prop, "CARDINAL", value); err != nil {
		return fmt.Errorf("failed to set %s: %w", prop, err)
	}
	return nil
}

// StringProp reads a string property. A missing property returns "", false.
func (c *Connection) StringProp(windowID xproto.Window, prop string) (string, bool) {
	val, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, windowID, prop))
	if err != nil {
		return "", false
	}
	return val, true
}

// Children lists the direct children of a window in stacking order.
func (c *Connection) Children(windowID xproto.Window) ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query tree: %w", err)
	}
	return tree.Children, nil
}

// WindowGeometry returns the geometry of a window relative to its parent.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		X:      int(geom.X),
		Y:      int(geom.Y),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// Destroy destroys a window and reports the server's answer.
func (c *Connection) Destroy(windowID xproto.Window) error {
	return xproto.DestroyWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// ConfigureChecked moves and/or resizes a child window directly, bypassing
// the window manager.
func (c *Connection) ConfigureChecked(windowID xproto.Window, mask uint16, values ...uint32) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID, mask, values).Check()
}
