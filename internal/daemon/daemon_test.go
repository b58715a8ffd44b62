package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/viewhost/internal/ipc"
	"github.com/1broseidon/viewhost/internal/platform"
	"github.com/1broseidon/viewhost/internal/uiloop"
)

type fakeTarget struct {
	mu      sync.Mutex
	calls   int
	dropped []string
	err     error
}

func (f *fakeTarget) Reconcile(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.dropped, f.err
}

func (f *fakeTarget) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconciler_ReconcileNow(t *testing.T) {
	target := &fakeTarget{dropped: []string{"window-2"}}
	r := NewReconciler(ReconcilerConfig{Logger: discardLogger()}, target)

	got := r.ReconcileNow(context.Background())
	if len(got) != 1 || got[0] != "window-2" {
		t.Fatalf("ReconcileNow() = %v", got)
	}

	target.err = errors.New("toolkit gone")
	if got := r.ReconcileNow(context.Background()); got != nil {
		t.Fatalf("ReconcileNow() on error = %v, want nil", got)
	}
}

// loopTarget reconciles on a real UI loop, panicking on the first pass.
type loopTarget struct {
	loop   *uiloop.Loop
	passes int
}

func (l *loopTarget) Reconcile(ctx context.Context) ([]string, error) {
	var dropped []string
	err := l.loop.Do(ctx, func() {
		l.passes++
		if l.passes == 1 {
			panic("registry corrupted")
		}
		dropped = []string{"window-1"}
	})
	return dropped, err
}

func TestReconciler_SurvivesPanicOnLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := uiloop.New()
	go loop.Run(ctx)

	r := NewReconciler(ReconcilerConfig{Logger: discardLogger()}, &loopTarget{loop: loop})
	if got := r.ReconcileNow(ctx); got != nil {
		t.Fatalf("ReconcileNow() after panic = %v, want nil", got)
	}
	if got := r.ReconcileNow(ctx); len(got) != 1 || got[0] != "window-1" {
		t.Fatalf("ReconcileNow() = %v, want [window-1]", got)
	}
}

func TestReconciler_RunTicksUntilCancelled(t *testing.T) {
	target := &fakeTarget{}
	r := NewReconciler(ReconcilerConfig{Interval: 5 * time.Millisecond, Logger: discardLogger()}, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for target.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("reconciler did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_HeadlessLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	socket := filepath.Join(dir, "viewhost.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, Options{
			ConfigPath: filepath.Join(dir, "missing.yaml"),
			Backend:    "headless",
			SocketPath: socket,
			Logger:     discardLogger(),
		})
	}()

	client := ipc.NewClientWithSocket(socket)
	deadline := time.Now().Add(3 * time.Second)
	for {
		status, err := client.GetStatus()
		if err == nil && status.WindowCount == 1 {
			if status.Backend != "headless" {
				t.Fatalf("backend = %q", status.Backend)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon not ready: status=%+v err=%v", status, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := os.Stat(filepath.Join(dir, "viewhost.pid")); err != nil {
		t.Fatalf("pid file: %v", err)
	}

	second := Run(context.Background(), Options{
		ConfigPath: filepath.Join(dir, "missing.yaml"),
		Backend:    "headless",
		SocketPath: socket,
		Logger:     discardLogger(),
	})
	if !errors.Is(second, ErrAlreadyRunning) {
		t.Fatalf("second Run() error = %v, want ErrAlreadyRunning", second)
	}

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket not removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "viewhost.pid")); !os.IsNotExist(err) {
		t.Fatalf("pid file not removed: %v", err)
	}
}

func TestRun_UnknownBackend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	err := Run(context.Background(), Options{
		ConfigPath: filepath.Join(dir, "missing.yaml"),
		Backend:    "wayland",
		SocketPath: filepath.Join(dir, "viewhost.sock"),
		Logger:     discardLogger(),
	})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRegisterHotkeys_HeadlessReturnsRelease(t *testing.T) {
	stop := registerHotkeys(context.Background(), platform.NewMemoryToolkit(), "Mod4-Mod1-w", nil, discardLogger())
	if stop == nil {
		t.Fatal("registerHotkeys() returned a nil release func")
	}
	stop()
}
