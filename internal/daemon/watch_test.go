package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchConfig_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	reload := func(context.Context) error {
		reloads.Add(1)
		return nil
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := watchConfig(ctx, path, reload, logger); err != nil {
		t.Fatalf("watchConfig: %v", err)
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * reloadDebounce)
	if n := reloads.Load(); n != 0 {
		t.Fatalf("reloads after unrelated write = %d, want 0", n)
	}

	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for reloads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("config write did not trigger a reload")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchConfig_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.yaml")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := watchConfig(context.Background(), path, func(context.Context) error { return nil }, logger)
	if err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
