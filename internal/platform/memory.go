package platform

import (
	"fmt"
	"sort"
	"sync"
)

// Op names a MemoryToolkit primitive for failure injection.
type Op string

const (
	OpCreateWindow   Op = "create-window"
	OpCloseWindow    Op = "close-window"
	OpResizeWindow   Op = "resize-window"
	OpAlwaysOnTop    Op = "always-on-top"
	OpAttachViewport Op = "attach-viewport"
	OpCloseViewport  Op = "close-viewport"
	OpResizeViewport Op = "resize-viewport"
	OpMoveViewport   Op = "move-viewport"
	OpLoad           Op = "load"
	OpEval           Op = "eval"
	OpDevtools       Op = "devtools"
)

// MemoryWindow is a host window held by MemoryToolkit.
type MemoryWindow struct {
	Label       string
	Title       string
	Bounds      Rect
	AlwaysOnTop bool
}

// MemorySurface is a viewport held by MemoryToolkit, including the state a
// real renderer would consume.
type MemorySurface struct {
	Label          string
	Bounds         Rect
	URL            string
	ClientIdentity string
	Scripts        []string
	DevtoolsOpen   bool
}

type memoryHost struct {
	window   MemoryWindow
	surfaces []*MemorySurface
}

// MemoryToolkit is an in-process Toolkit. It backs the headless daemon and
// the tests. Failures can be injected per primitive, and viewport closes can
// be deferred to mimic a toolkit that tears surfaces down asynchronously.
type MemoryToolkit struct {
	mu        sync.Mutex
	hosts     map[string]*memoryHost
	failures  map[Op]error
	deferred  bool
	pending   map[string][]string
	done      chan struct{}
	closeOnce sync.Once
}

var _ Toolkit = (*MemoryToolkit)(nil)

// NewMemoryToolkit returns an empty MemoryToolkit.
func NewMemoryToolkit() *MemoryToolkit {
	return &MemoryToolkit{
		hosts:    make(map[string]*memoryHost),
		failures: make(map[Op]error),
		pending:  make(map[string][]string),
		done:     make(chan struct{}),
	}
}

// FailOn makes every call of op return err until cleared with a nil err.
func (m *MemoryToolkit) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// DeferCloses makes CloseViewport report success while leaving the surface
// attached until FlushCloses runs.
func (m *MemoryToolkit) DeferCloses(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deferred = enabled
}

// FlushCloses completes every deferred viewport close.
func (m *MemoryToolkit) FlushCloses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for window, labels := range m.pending {
		host, ok := m.hosts[window]
		if !ok {
			continue
		}
		for _, label := range labels {
			host.remove(label)
		}
	}
	m.pending = make(map[string][]string)
}

// Window returns a copy of a host window.
func (m *MemoryToolkit) Window(label string) (MemoryWindow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	host, ok := m.hosts[label]
	if !ok {
		return MemoryWindow{}, false
	}
	return host.window, true
}

// Surface returns a copy of a viewport surface.
func (m *MemoryToolkit) Surface(window, label string) (MemorySurface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	host, ok := m.hosts[window]
	if !ok {
		return MemorySurface{}, false
	}
	s := host.find(label)
	if s == nil {
		return MemorySurface{}, false
	}
	cp := *s
	cp.Scripts = append([]string(nil), s.Scripts...)
	return cp, true
}

// CreateWindow implements Toolkit.
func (m *MemoryToolkit) CreateWindow(spec WindowSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpCreateWindow); err != nil {
		return err
	}
	if _, ok := m.hosts[spec.Label]; ok {
		return fmt.Errorf("window %q: %w", spec.Label, ErrLabelInUse)
	}
	m.hosts[spec.Label] = &memoryHost{window: MemoryWindow{
		Label:       spec.Label,
		Title:       spec.Title,
		Bounds:      spec.Bounds,
		AlwaysOnTop: spec.AlwaysOnTop,
	}}
	return nil
}

// CloseWindow implements Toolkit.
func (m *MemoryToolkit) CloseWindow(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpCloseWindow); err != nil {
		return err
	}
	if _, err := m.host(label); err != nil {
		return err
	}
	delete(m.hosts, label)
	delete(m.pending, label)
	return nil
}

// Windows implements Toolkit. Labels are sorted.
func (m *MemoryToolkit) Windows() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make([]string, 0, len(m.hosts))
	for label := range m.hosts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

// ResizeWindow implements Toolkit.
func (m *MemoryToolkit) ResizeWindow(label string, width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpResizeWindow); err != nil {
		return err
	}
	host, err := m.host(label)
	if err != nil {
		return err
	}
	host.window.Bounds.Width = width
	host.window.Bounds.Height = height
	return nil
}

// SetAlwaysOnTop implements Toolkit.
func (m *MemoryToolkit) SetAlwaysOnTop(label string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpAlwaysOnTop); err != nil {
		return err
	}
	host, err := m.host(label)
	if err != nil {
		return err
	}
	host.window.AlwaysOnTop = enabled
	return nil
}

// AttachViewport implements Toolkit.
func (m *MemoryToolkit) AttachViewport(window string, spec ViewportSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpAttachViewport); err != nil {
		return err
	}
	host, err := m.host(window)
	if err != nil {
		return err
	}
	if host.find(spec.Label) != nil {
		return fmt.Errorf("viewport %q: %w", spec.Label, ErrLabelInUse)
	}
	host.surfaces = append(host.surfaces, &MemorySurface{
		Label:          spec.Label,
		Bounds:         spec.Bounds,
		URL:            spec.URL,
		ClientIdentity: spec.ClientIdentity,
		DevtoolsOpen:   spec.Devtools,
	})
	return nil
}

// CloseViewport implements Toolkit.
func (m *MemoryToolkit) CloseViewport(window, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpCloseViewport); err != nil {
		return err
	}
	host, s, err := m.surface(window, label)
	if err != nil {
		return err
	}
	if m.deferred {
		m.pending[window] = append(m.pending[window], s.Label)
		return nil
	}
	host.remove(label)
	return nil
}

// Viewports implements Toolkit. Surfaces are returned in attach order.
func (m *MemoryToolkit) Viewports(window string) ([]Surface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	host, err := m.host(window)
	if err != nil {
		return nil, err
	}
	out := make([]Surface, 0, len(host.surfaces))
	for _, s := range host.surfaces {
		out = append(out, Surface{Label: s.Label, Bounds: s.Bounds, URL: s.URL})
	}
	return out, nil
}

// ResizeViewport implements Toolkit.
func (m *MemoryToolkit) ResizeViewport(window, label string, width, height int) error {
	return m.mutate(OpResizeViewport, window, label, func(s *MemorySurface) {
		s.Bounds.Width = width
		s.Bounds.Height = height
	})
}

// MoveViewport implements Toolkit.
func (m *MemoryToolkit) MoveViewport(window, label string, x, y int) error {
	return m.mutate(OpMoveViewport, window, label, func(s *MemorySurface) {
		s.Bounds.X = x
		s.Bounds.Y = y
	})
}

// Load implements Toolkit.
func (m *MemoryToolkit) Load(window, label, url string) error {
	return m.mutate(OpLoad, window, label, func(s *MemorySurface) {
		s.URL = url
	})
}

// Eval implements Toolkit.
func (m *MemoryToolkit) Eval(window, label, script string) error {
	return m.mutate(OpEval, window, label, func(s *MemorySurface) {
		s.Scripts = append(s.Scripts, script)
	})
}

// OpenDevtools implements Toolkit.
func (m *MemoryToolkit) OpenDevtools(window, label string) error {
	return m.mutate(OpDevtools, window, label, func(s *MemorySurface) {
		s.DevtoolsOpen = true
	})
}

// EventLoop blocks until Close.
func (m *MemoryToolkit) EventLoop() {
	<-m.done
}

// Close releases EventLoop. It is safe to call more than once.
func (m *MemoryToolkit) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *MemoryToolkit) mutate(op Op, window, label string, fn func(*MemorySurface)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(op); err != nil {
		return err
	}
	_, s, err := m.surface(window, label)
	if err != nil {
		return err
	}
	fn(s)
	return nil
}

func (m *MemoryToolkit) failure(op Op) error {
	if err, ok := m.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *MemoryToolkit) host(label string) (*memoryHost, error) {
	host, ok := m.hosts[label]
	if !ok {
		return nil, fmt.Errorf("window %q: %w", label, ErrNoSuchWindow)
	}
	return host, nil
}

func (m *MemoryToolkit) surface(window, label string) (*memoryHost, *MemorySurface, error) {
	host, err := m.host(window)
	if err != nil {
		return nil, nil, err
	}
	s := host.find(label)
	if s == nil {
		return nil, nil, fmt.Errorf("viewport %q in window %q: %w", label, window, ErrNoSuchSurface)
	}
	return host, s, nil
}

func (h *memoryHost) find(label string) *MemorySurface {
	for _, s := range h.surfaces {
		if s.Label == label {
			return s
		}
	}
	return nil
}

func (h *memoryHost) remove(label string) {
	for i, s := range h.surfaces {
		if s.Label == label {
			h.surfaces = append(h.surfaces[:i], h.surfaces[i+1:]...)
			return
		}
	}
}
