// Package command is the validating front door to the viewport manager.
// Every caller (IPC, MCP via IPC, hotkeys) goes through a Surface, which
// checks arguments, hops onto the UI loop, and audits what it did.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/1broseidon/viewhost/internal/audit"
	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/uiloop"
	"github.com/1broseidon/viewhost/internal/viewport"
)

// Surface runs validated commands on the UI loop.
type Surface struct {
	loop    *uiloop.Loop
	manager *viewport.Manager
	audit   *audit.Logger
	logger  *slog.Logger

	cfgMu sync.RWMutex
	cfg   *config.Config
}

// New creates a Surface. audit may be nil.
func New(loop *uiloop.Loop, manager *viewport.Manager, cfg *config.Config, auditLog *audit.Logger, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		loop:    loop,
		manager: manager,
		audit:   auditLog,
		logger:  logger,
		cfg:     cfg,
	}
}

// LayoutFor derives the manager layout from cfg.
func LayoutFor(cfg *config.Config) viewport.Layout {
	return viewport.Layout{
		Title:              "Mobile WebView",
		ViewportWidth:      cfg.Viewport.Width,
		ViewportHeight:     cfg.Viewport.Height,
		ControlStripHeight: cfg.ControlStripHeight,
		OriginX:            cfg.WindowOrigin.X,
		OriginY:            cfg.WindowOrigin.Y,
		CascadeOffset:      cfg.Cascade.Offset,
		CascadeSteps:       cfg.Cascade.Steps,
		PlaceholderURL:     cfg.PlaceholderURL,
		Devtools:           cfg.Devtools,
		AlwaysOnTop:        cfg.AlwaysOnTop,
	}
}

// Config returns the configuration commands currently use.
func (s *Surface) Config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig swaps the configuration. Later commands see the new identities
// and layout; existing windows are not touched.
func (s *Surface) SetConfig(ctx context.Context, cfg *config.Config) error {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	layout := LayoutFor(cfg)
	return s.loop.Do(ctx, func() { s.manager.SetLayout(layout) })
}

// CreateWindow opens a new host window. An empty rawURL falls back to the
// configured default URL and then the placeholder. An empty mode uses the
// configured default mode.
func (s *Surface) CreateWindow(ctx context.Context, rawURL string, mode config.Mode) (viewport.WindowInstance, error) {
	cfg := s.Config()
	if mode == "" {
		mode = cfg.DefaultMode
	}
	if mode != config.ModeMobile && mode != config.ModeDesktop {
		return viewport.WindowInstance{}, fmt.Errorf("%w: mode must be mobile or desktop, got %q", ErrInvalidArgument, mode)
	}
	target := strings.TrimSpace(rawURL)
	if target == "" {
		target = cfg.DefaultURL
	}
	if target != "" && target != cfg.PlaceholderURL {
		var err error
		if target, err = viewport.ValidateURL(target); err != nil {
			return viewport.WindowInstance{}, err
		}
	}

	var (
		inst viewport.WindowInstance
		err  error
	)
	identity := cfg.Identity(mode)
	if derr := s.loop.Do(ctx, func() { inst, err = s.manager.CreateWindow(target, identity) }); derr != nil {
		return viewport.WindowInstance{}, derr
	}
	if err != nil {
		return viewport.WindowInstance{}, err
	}
	s.audit.Log(audit.ActionCreate, inst.Label, map[string]any{"url": target, "mode": string(mode)})
	return inst, nil
}

// Navigate loads rawURL into the window's active viewport.
func (s *Surface) Navigate(ctx context.Context, window, rawURL string) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	target, err := viewport.ValidateURL(rawURL)
	if err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.Navigate(window, target) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionNavigate, window, map[string]any{"url": target})
	return nil
}

// RunScript submits script to the active viewport. The script is not
// inspected.
func (s *Surface) RunScript(ctx context.Context, window, script string) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("%w: script is empty", ErrInvalidArgument)
	}
	if err := s.run(ctx, func() error { return s.manager.RunScript(window, script) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionEval, window, map[string]any{
		"script": s.audit.Content(script),
		"length": len(script),
	})
	return nil
}

// OpenDevtools shows the inspector for the active viewport.
func (s *Surface) OpenDevtools(ctx context.Context, window string) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.OpenDevtools(window) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionDevtools, window, nil)
	return nil
}

// ResizeWindow resizes the host window only.
func (s *Surface) ResizeWindow(ctx context.Context, window string, width, height int) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if err := requireSize(width, height); err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.ResizeWindow(window, width, height) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionResize, window, map[string]any{"target": "window", "width": width, "height": height})
	return nil
}

// ResizeViewport resizes the active viewport only.
func (s *Surface) ResizeViewport(ctx context.Context, window string, width, height int) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if err := requireSize(width, height); err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.ResizeViewport(window, width, height) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionResize, window, map[string]any{"target": "viewport", "width": width, "height": height})
	return nil
}

// RepositionViewport moves the active viewport inside its window.
func (s *Surface) RepositionViewport(ctx context.Context, window string, x, y int) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.RepositionViewport(window, x, y) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionMove, window, map[string]any{"x": x, "y": y})
	return nil
}

// SetAlwaysOnTop toggles host window stacking.
func (s *Surface) SetAlwaysOnTop(ctx context.Context, window string, enabled bool) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.SetAlwaysOnTop(window, enabled) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionOnTop, window, map[string]any{"enabled": enabled})
	return nil
}

// SwitchClientIdentity recreates the active viewport with the mobile or
// desktop identity, loading currentURL (the placeholder when empty).
//
// A malformed currentURL is rejected here, before the old viewport is
// touched.
func (s *Surface) SwitchClientIdentity(ctx context.Context, window string, mobile bool, currentURL string) (viewport.ChildViewport, error) {
	if err := requireWindow(window); err != nil {
		return viewport.ChildViewport{}, err
	}
	cfg := s.Config()
	target := strings.TrimSpace(currentURL)
	if target != "" && target != cfg.PlaceholderURL {
		var err error
		if target, err = viewport.ValidateURL(target); err != nil {
			return viewport.ChildViewport{}, err
		}
	}

	mode := config.ModeDesktop
	if mobile {
		mode = config.ModeMobile
	}
	identity := cfg.Identity(mode)

	var vp viewport.ChildViewport
	err := s.run(ctx, func() error {
		var err error
		vp, err = s.manager.SwitchClientIdentity(window, identity, target)
		return err
	})
	if err != nil {
		return viewport.ChildViewport{}, err
	}
	s.audit.Log(audit.ActionRecreate, window, map[string]any{
		"mode":     string(mode),
		"viewport": vp.Label,
		"url":      vp.URL,
	})
	return vp, nil
}

// CloseWindow destroys a host window.
func (s *Surface) CloseWindow(ctx context.Context, window string) error {
	if err := requireWindow(window); err != nil {
		return err
	}
	if err := s.run(ctx, func() error { return s.manager.CloseWindow(window) }); err != nil {
		return err
	}
	s.audit.Log(audit.ActionClose, window, nil)
	return nil
}

// ListWindows returns a snapshot of every managed window.
func (s *Surface) ListWindows(ctx context.Context) ([]viewport.Snapshot, error) {
	var out []viewport.Snapshot
	if err := s.loop.Do(ctx, func() { out = s.manager.Windows() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Reconcile drops windows the user closed outside viewhost.
func (s *Surface) Reconcile(ctx context.Context) ([]string, error) {
	var dropped []string
	err := s.run(ctx, func() error {
		var err error
		dropped, err = s.manager.Reconcile()
		return err
	})
	return dropped, err
}

func (s *Surface) run(ctx context.Context, fn func() error) error {
	var err error
	if derr := s.loop.Do(ctx, func() { err = fn() }); derr != nil {
		return derr
	}
	if err != nil {
		s.logger.Debug("command failed", "code", Code(err), "error", err)
	}
	return err
}

func requireWindow(window string) error {
	if strings.TrimSpace(window) == "" {
		return fmt.Errorf("%w: window label is required", ErrInvalidArgument)
	}
	return nil
}

func requireSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width and height must be positive, got %dx%d", ErrInvalidArgument, width, height)
	}
	return nil
}
