package platform

import "errors"

// Rect describes a rectangular region. Host window rects are in screen
// coordinates; viewport rects are relative to their host window.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSpec describes a host window to create.
type WindowSpec struct {
	Label       string
	Title       string
	Bounds      Rect
	AlwaysOnTop bool
}

// ViewportSpec describes a child viewport to attach to a host window.
type ViewportSpec struct {
	Label          string
	Bounds         Rect
	URL            string
	ClientIdentity string
	Devtools       bool
}

// Surface is a child viewport as the toolkit currently sees it.
type Surface struct {
	Label  string
	Bounds Rect
	URL    string
}

var (
	// ErrNoSuchWindow is returned for an unknown host window label.
	ErrNoSuchWindow = errors.New("no such window")
	// ErrNoSuchSurface is returned for an unknown viewport label.
	ErrNoSuchSurface = errors.New("no such viewport surface")
	// ErrLabelInUse is returned when a label is already taken.
	ErrLabelInUse = errors.New("label already in use")
)

// Toolkit abstracts the host windowing and content-surface primitives.
// Windows and viewports are addressed by string labels. Implementations are
// driven from a single goroutine and need not be safe for concurrent use.
type Toolkit interface {
	CreateWindow(spec WindowSpec) error
	CloseWindow(label string) error
	Windows() ([]string, error)
	ResizeWindow(label string, width, height int) error
	SetAlwaysOnTop(label string, enabled bool) error

	AttachViewport(window string, spec ViewportSpec) error
	CloseViewport(window, label string) error
	Viewports(window string) ([]Surface, error)
	ResizeViewport(window, label string, width, height int) error
	MoveViewport(window, label string, x, y int) error
	Load(window, label, url string) error
	Eval(window, label, script string) error
	OpenDevtools(window, label string) error

	// EventLoop blocks processing toolkit events until Close is called.
	EventLoop()
	Close()
}

// WorkAreaProvider is implemented by toolkits that know the usable area of
// the active display. New windows are placed relative to its origin.
type WorkAreaProvider interface {
	WorkArea() (Rect, error)
}
