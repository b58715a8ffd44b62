package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/viewhost/internal/ipc"
	"github.com/1broseidon/viewhost/internal/platform"
	"github.com/1broseidon/viewhost/internal/viewport"
)

// fakeDaemon records the calls it receives.
type fakeDaemon struct {
	calls   []string
	windows []string
	err     error
}

func (f *fakeDaemon) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeDaemon) CreateWindow(url, mode string) (*viewport.WindowInstance, error) {
	if err := f.record("create %s %s", url, mode); err != nil {
		return nil, err
	}
	id := uint32(len(f.windows) + 1)
	label := viewport.WindowLabel(id)
	f.windows = append(f.windows, label)
	return &viewport.WindowInstance{InstanceID: id, Label: label}, nil
}

func (f *fakeDaemon) Navigate(window, url string) error {
	return f.record("navigate %s %s", window, url)
}

func (f *fakeDaemon) RunScript(window, script string) error {
	return f.record("eval %s %s", window, script)
}

func (f *fakeDaemon) OpenDevtools(window string) error {
	return f.record("devtools %s", window)
}

func (f *fakeDaemon) ResizeWindow(window string, width, height int) error {
	return f.record("resize-window %s %dx%d", window, width, height)
}

func (f *fakeDaemon) ResizeViewport(window string, width, height int) error {
	return f.record("resize-viewport %s %dx%d", window, width, height)
}

func (f *fakeDaemon) RepositionViewport(window string, x, y int) error {
	return f.record("move %s %d,%d", window, x, y)
}

func (f *fakeDaemon) SetAlwaysOnTop(window string, enabled bool) error {
	return f.record("on-top %s %t", window, enabled)
}

func (f *fakeDaemon) SwitchClientIdentity(window string, mobile bool, currentURL string) (*viewport.ChildViewport, error) {
	if err := f.record("switch %s %t %s", window, mobile, currentURL); err != nil {
		return nil, err
	}
	return &viewport.ChildViewport{
		Label:  viewport.Recreated(1).Label(),
		Bounds: platform.Rect{Width: 375, Height: 617},
		URL:    currentURL,
	}, nil
}

func (f *fakeDaemon) ListWindows() ([]viewport.Snapshot, error) {
	var out []viewport.Snapshot
	for i, label := range f.windows {
		out = append(out, viewport.Snapshot{Window: viewport.WindowInstance{InstanceID: uint32(i + 1), Label: label}})
	}
	return out, nil
}

func (f *fakeDaemon) ResolveWindow(window string) (string, error) {
	if window != "" {
		return window, nil
	}
	if len(f.windows) == 0 {
		return "", errors.New("no windows open")
	}
	return f.windows[len(f.windows)-1], nil
}

func newTestServer() (*Server, *fakeDaemon) {
	d := &fakeDaemon{}
	return NewServer(d, slog.New(slog.NewTextHandler(io.Discard, nil))), d
}

func TestToolsForwardToDaemon(t *testing.T) {
	s, d := newTestServer()
	ctx := context.Background()

	_, created, err := s.handleCreateWindow(ctx, nil, CreateWindowInput{URL: "https://example.com", Mode: "mobile"})
	if err != nil {
		t.Fatalf("create_window: %v", err)
	}
	if created.Window.Label != "window-1" || created.Viewport != "webview-1" {
		t.Fatalf("create_window output = %+v", created)
	}

	steps := []func() (AckOutput, error){
		func() (AckOutput, error) {
			_, out, err := s.handleNavigate(ctx, nil, NavigateInput{URL: "https://example.org"})
			return out, err
		},
		func() (AckOutput, error) {
			_, out, err := s.handleRunScript(ctx, nil, RunScriptInput{Window: "window-1", Script: "scanBarcode('7')"})
			return out, err
		},
		func() (AckOutput, error) {
			_, out, err := s.handleOpenDevtools(ctx, nil, WindowInput{})
			return out, err
		},
		func() (AckOutput, error) {
			_, out, err := s.handleResizeWindow(ctx, nil, SizeInput{Width: 725, Height: 667})
			return out, err
		},
		func() (AckOutput, error) {
			_, out, err := s.handleResizeViewport(ctx, nil, SizeInput{Width: 375, Height: 667})
			return out, err
		},
		func() (AckOutput, error) {
			_, out, err := s.handleRepositionViewport(ctx, nil, PositionInput{X: 0, Y: 0})
			return out, err
		},
		func() (AckOutput, error) {
			_, out, err := s.handleSetAlwaysOnTop(ctx, nil, AlwaysOnTopInput{Enabled: true})
			return out, err
		},
	}
	for i, step := range steps {
		out, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !out.OK || out.Window != "window-1" {
			t.Fatalf("step %d output = %+v", i, out)
		}
	}

	_, switched, err := s.handleSwitchClientIdentity(ctx, nil, SwitchClientIdentityInput{Mobile: false, CurrentURL: "https://example.org"})
	if err != nil {
		t.Fatalf("switch_client_identity: %v", err)
	}
	if switched.Window != "window-1" || switched.Viewport.Label != "webview-recreation-1" {
		t.Fatalf("switch output = %+v", switched)
	}

	want := []string{
		"create https://example.com mobile",
		"navigate window-1 https://example.org",
		"eval window-1 scanBarcode('7')",
		"devtools window-1",
		"resize-window window-1 725x667",
		"resize-viewport window-1 375x667",
		"move window-1 0,0",
		"on-top window-1 true",
		"switch window-1 false https://example.org",
	}
	if len(d.calls) != len(want) {
		t.Fatalf("calls = %v", d.calls)
	}
	for i := range want {
		if d.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, d.calls[i], want[i])
		}
	}

	_, list, err := s.handleListWindows(ctx, nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(list.Windows) != 1 {
		t.Fatalf("list_windows = %+v", list)
	}
}

func TestToolsPropagateDaemonErrors(t *testing.T) {
	s, d := newTestServer()
	ctx := context.Background()

	if _, _, err := s.handleNavigate(ctx, nil, NavigateInput{URL: "https://a.b"}); err == nil {
		t.Fatal("expected error with no windows to resolve")
	}

	d.windows = []string{"window-1"}
	d.err = &ipc.DaemonError{Code: "VIEWPORT_NOT_FOUND", Message: "Viewport not found"}
	_, _, err := s.handleNavigate(ctx, nil, NavigateInput{URL: "https://a.b"})
	var derr *ipc.DaemonError
	if !errors.As(err, &derr) || derr.Code != "VIEWPORT_NOT_FOUND" {
		t.Fatalf("error = %v, want daemon VIEWPORT_NOT_FOUND", err)
	}
	if _, _, err := s.handleSwitchClientIdentity(ctx, nil, SwitchClientIdentityInput{Mobile: true}); err == nil {
		t.Fatal("expected switch error")
	}
}
