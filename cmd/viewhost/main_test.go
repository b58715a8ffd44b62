package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/viewhost/internal/daemon"
	"github.com/1broseidon/viewhost/internal/ipc"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	writeFile(t, good, "default_mode: desktop\nviewport:\n  width: 390\n  height: 600\n")
	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "default_mode: tablet\n")
	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "gap_size: 4\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"valid file", []string{"validate", "--path", good}, 0},
		{"missing file uses defaults", []string{"validate", "--path", filepath.Join(dir, "none.yaml")}, 0},
		{"invalid value", []string{"validate", "--path", bad}, 1},
		{"unknown key", []string{"validate", "--path", unknown}, 1},
		{"print defaults", []string{"print", "--defaults"}, 0},
		{"unknown subcommand", []string{"explain"}, 2},
		{"no subcommand", nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runConfig(tt.args); got != tt.want {
				t.Fatalf("runConfig(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "true", "1", "yes"} {
		if v, err := parseOnOff(s); err != nil || !v {
			t.Errorf("parseOnOff(%q) = %v, %v", s, v, err)
		}
	}
	for _, s := range []string{"off", "false", "0", "no"} {
		if v, err := parseOnOff(s); err != nil || v {
			t.Errorf("parseOnOff(%q) = %v, %v", s, v, err)
		}
	}
	if _, err := parseOnOff("maybe"); err == nil {
		t.Error("parseOnOff(maybe) should fail")
	}
}

func startDaemon(t *testing.T) *ipc.Client {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("HOME", dir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = daemon.Run(ctx, daemon.Options{
			ConfigPath: filepath.Join(dir, "config.yaml"),
			Backend:    "headless",
			NoWindow:   true,
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client := ipc.NewClient()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := client.GetStatus(); err == nil {
			return client
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestControlCommandsAgainstDaemon(t *testing.T) {
	client := startDaemon(t)

	if rc := runOpen([]string{"https://example.com"}); rc != 0 {
		t.Fatalf("open rc=%d", rc)
	}

	steps := []struct {
		name string
		args []string
		want int
	}{
		{"navigate", []string{"https://example.org"}, 0},
		{"eval", []string{"scanBarcode('1')"}, 0},
		{"resize", []string{"725", "667"}, 0},
		{"resize-viewport", []string{"--window", "window-1", "375", "667"}, 0},
		{"move-viewport", []string{"0", "0"}, 0},
		{"on-top", []string{"on"}, 0},
		{"devtools", nil, 0},
		{"mode", []string{"desktop"}, 0},
		{"navigate", []string{"not a url"}, 1},
		{"resize", []string{"wide", "667"}, 1},
		{"navigate", nil, 2},
		{"on-top", []string{"--window", "window-9", "on"}, 1},
	}
	for _, s := range steps {
		if got := runControl(s.name, s.args); got != s.want {
			t.Fatalf("%s %v rc=%d, want %d", s.name, s.args, got, s.want)
		}
	}

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 1 {
		t.Fatalf("windows = %+v", windows)
	}
	w := windows[0]
	if w.Active == nil || w.Active.Label != "webview-recreation-1" || w.Active.URL != "https://example.org" {
		t.Fatalf("active = %+v", w.Active)
	}
	if w.Active.Bounds.Height != 667 || !w.Window.AlwaysOnTop || w.Window.Bounds.Width != 725 {
		t.Fatalf("window = %+v active = %+v", w.Window, w.Active)
	}

	if rc := runControl("close", nil); rc != 0 {
		t.Fatalf("close rc=%d", rc)
	}
	if rc := runControl("devtools", nil); rc != 1 {
		t.Fatalf("devtools with no windows rc=%d, want 1", rc)
	}
}
