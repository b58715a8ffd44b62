package ipc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/1broseidon/viewhost/internal/command"
	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/ids"
	"github.com/1broseidon/viewhost/internal/platform"
	"github.com/1broseidon/viewhost/internal/uiloop"
	"github.com/1broseidon/viewhost/internal/viewport"
)

func startServer(t *testing.T, reload ReloadFunc) (*Client, *platform.MemoryToolkit) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	cfg.ClientIdentities = config.ClientIdentities{Mobile: "m-ua", Desktop: "d-ua"}

	tk := platform.NewMemoryToolkit()
	mgr := viewport.NewManager(tk, ids.NewCounter(), command.LayoutFor(cfg), logger)
	loop := uiloop.New()
	go loop.Run(ctx)
	surface := command.New(loop, mgr, cfg, nil, logger)

	socket := filepath.Join(t.TempDir(), "viewhost.sock")
	srv, err := NewServer(ServerOptions{
		SocketPath: socket,
		Surface:    surface,
		Reload:     reload,
		Backend:    "headless",
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)

	return NewClientWithSocket(socket), tk
}

func TestClientServer_Lifecycle(t *testing.T) {
	client, tk := startServer(t, nil)

	inst, err := client.CreateWindow("https://example.com", "desktop")
	if err != nil {
		t.Fatalf("CreateWindow() error: %v", err)
	}
	if inst.Label != "window-1" || inst.Bounds.Height != 667 {
		t.Fatalf("instance = %+v", inst)
	}

	if err := client.Navigate("window-1", "https://example.org"); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	if err := client.RunScript("window-1", "scanBarcode('42')"); err != nil {
		t.Fatalf("RunScript() error: %v", err)
	}
	if err := client.ResizeViewport("window-1", 375, 667); err != nil {
		t.Fatalf("ResizeViewport() error: %v", err)
	}
	if err := client.ResizeWindow("window-1", 725, 667); err != nil {
		t.Fatalf("ResizeWindow() error: %v", err)
	}
	if err := client.RepositionViewport("window-1", 0, 0); err != nil {
		t.Fatalf("RepositionViewport() error: %v", err)
	}
	if err := client.SetAlwaysOnTop("window-1", true); err != nil {
		t.Fatalf("SetAlwaysOnTop() error: %v", err)
	}
	if err := client.OpenDevtools("window-1"); err != nil {
		t.Fatalf("OpenDevtools() error: %v", err)
	}

	vp, err := client.SwitchClientIdentity("window-1", true, "https://example.org")
	if err != nil {
		t.Fatalf("SwitchClientIdentity() error: %v", err)
	}
	if vp.Label != "webview-recreation-1" || vp.Bounds.Height != 667 {
		t.Fatalf("replacement = %+v", vp)
	}
	s, ok := tk.Surface("window-1", vp.Label)
	if !ok || s.ClientIdentity != "m-ua" {
		t.Fatalf("replacement surface = %+v", s)
	}

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows() error: %v", err)
	}
	if len(windows) != 1 || windows[0].Active == nil || windows[0].Active.Label != vp.Label {
		t.Fatalf("windows = %+v", windows)
	}
	if !windows[0].Window.AlwaysOnTop || windows[0].Window.Bounds.Width != 725 {
		t.Fatalf("window state = %+v", windows[0].Window)
	}

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if status.Backend != "headless" || status.WindowCount != 1 || !status.DaemonRunning {
		t.Fatalf("status = %+v", status)
	}

	if err := client.CloseWindow("window-1"); err != nil {
		t.Fatalf("CloseWindow() error: %v", err)
	}
	if _, ok := tk.Window("window-1"); ok {
		t.Fatal("window-1 still open")
	}
}

func TestClientServer_ErrorCodes(t *testing.T) {
	client, _ := startServer(t, nil)

	err := client.Navigate("window-3", "not a url")
	var derr *DaemonError
	if !errors.As(err, &derr) || derr.Code != command.CodeInvalidURL {
		t.Fatalf("Navigate() error = %v, want INVALID_URL", err)
	}

	err = client.Navigate("window-3", "https://example.com")
	if !errors.As(err, &derr) || derr.Code != command.CodeViewportNotFound {
		t.Fatalf("Navigate() error = %v, want VIEWPORT_NOT_FOUND", err)
	}

	err = client.ResizeWindow("window-3", 0, 0)
	if !errors.As(err, &derr) || derr.Code != command.CodeInvalidArgument {
		t.Fatalf("ResizeWindow() error = %v, want INVALID_ARGUMENT", err)
	}

	if err := client.Reload(); !errors.As(err, &derr) || derr.Code != command.CodeUnavailable {
		t.Fatalf("Reload() error = %v, want UNAVAILABLE", err)
	}
}

func TestResolveWindow(t *testing.T) {
	client, _ := startServer(t, nil)

	if _, err := client.ResolveWindow(""); err == nil {
		t.Fatal("expected error with no windows")
	}
	for i := 0; i < 2; i++ {
		if _, err := client.CreateWindow("", ""); err != nil {
			t.Fatal(err)
		}
	}
	got, err := client.ResolveWindow("")
	if err != nil {
		t.Fatalf("ResolveWindow() error: %v", err)
	}
	if got != "window-2" {
		t.Fatalf("ResolveWindow() = %q, want window-2", got)
	}
	if got, _ := client.ResolveWindow("window-1"); got != "window-1" {
		t.Fatalf("explicit window rewritten to %q", got)
	}
}

func TestReload(t *testing.T) {
	var calls atomic.Int32
	client, _ := startServer(t, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("reload calls = %d", n)
	}
}

func TestServer_RawProtocol(t *testing.T) {
	client, _ := startServer(t, nil)

	tests := []struct {
		line string
		want string
	}{
		{"not json\n", `"code":"INVALID_ARGUMENT"`},
		{`{"command":"TELEPORT"}` + "\n", `Unknown command: TELEPORT`},
		{`{"command":"NAVIGATE"}` + "\n", `payload is required`},
		{`{"command":"LIST_WINDOWS"}` + "\n", `"status":"OK"`},
		{`{"command":"CREATE_WINDOW"}` + "\n", `"label":"window-1"`},
		{`{"command":"CREATE_WINDOW","payload":null}` + "\n", `"label":"window-2"`},
	}
	for _, tt := range tests {
		conn, err := net.Dial("unix", client.socketPath)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		if _, err := conn.Write([]byte(tt.line)); err != nil {
			t.Fatal(err)
		}
		resp, err := bufio.NewReader(conn).ReadString('\n')
		conn.Close()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(resp, tt.want) {
			t.Errorf("%q -> %s, want %s", tt.line, resp, tt.want)
		}
	}
}

func TestServer_SocketPermissions(t *testing.T) {
	client, _ := startServer(t, nil)
	path := client.socketPath

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("socket mode = %v", info.Mode().Perm())
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientWithSocket(filepath.Join(t.TempDir(), "missing.sock"))
	err := client.Reload()
	if err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("Reload() error = %v", err)
	}
}
