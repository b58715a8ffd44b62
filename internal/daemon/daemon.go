// Package daemon wires the toolkit, viewport manager and control surfaces
// into the long-running viewhost process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/1broseidon/viewhost/internal/audit"
	"github.com/1broseidon/viewhost/internal/command"
	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/hotkeys"
	"github.com/1broseidon/viewhost/internal/ids"
	"github.com/1broseidon/viewhost/internal/ipc"
	"github.com/1broseidon/viewhost/internal/platform"
	"github.com/1broseidon/viewhost/internal/runtimepath"
	"github.com/1broseidon/viewhost/internal/uiloop"
	"github.com/1broseidon/viewhost/internal/viewport"
)

// ErrAlreadyRunning is returned when another daemon answers on the socket.
var ErrAlreadyRunning = errors.New("daemon already running")

// Options configures Run.
type Options struct {
	// ConfigPath defaults to ~/.config/viewhost/config.yaml.
	ConfigPath string
	// Backend overrides the configured backend when set.
	Backend string
	// NoWindow skips opening the first window on startup.
	NoWindow bool
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Logger     *slog.Logger
}

// Run starts the daemon and blocks until ctx is cancelled or the toolkit
// event loop exits.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	backend := string(cfg.Backend)
	if opts.Backend != "" {
		backend = opts.Backend
	}
	logger.Info("configuration loaded",
		"backend", backend,
		"viewport", fmt.Sprintf("%dx%d", cfg.Viewport.Width, cfg.Viewport.Height),
		"default_mode", cfg.DefaultMode)

	socketPath := opts.SocketPath
	if socketPath == "" {
		if socketPath, err = runtimepath.SocketPath(); err != nil {
			return fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	if _, err := ipc.NewClientWithSocket(socketPath).GetStatus(); err == nil {
		return fmt.Errorf("%w on %s", ErrAlreadyRunning, socketPath)
	}

	tk, err := platform.Open(backend, cfg.Display, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s toolkit: %w", backend, err)
	}
	var closeOnce sync.Once
	closeToolkit := func() { closeOnce.Do(tk.Close) }
	defer closeToolkit()

	auditLog, err := audit.New(AuditConfig(cfg))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := uiloop.New()
	go loop.Run(ctx)

	mgr := viewport.NewManager(tk, ids.NewCounter(), command.LayoutFor(cfg), logger)
	surface := command.New(loop, mgr, cfg, auditLog, logger)

	reload := func(ctx context.Context) error {
		newCfg, err := loadConfig(opts.ConfigPath)
		if err != nil {
			logger.Warn("config reload failed", "error", err)
			return err
		}
		if err := surface.SetConfig(ctx, newCfg); err != nil {
			return err
		}
		logger.Info("config reloaded")
		return nil
	}

	if err := writePIDFile(); err != nil {
		logger.Warn("failed to write pid file", "error", err)
	}
	defer removePIDFile()

	ipcServer, err := ipc.NewServer(ipc.ServerOptions{
		SocketPath: socketPath,
		Surface:    surface,
		Reload:     reload,
		Backend:    backend,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create IPC server: %w", err)
	}
	if err := ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer ipcServer.Stop()

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: time.Duration(cfg.ReconcileIntervalSeconds) * time.Second,
		Logger:   logger,
	}, surface)
	go reconciler.Run(ctx)

	stopHotkeys := func() {}
	if cfg.NewWindowHotkey != "" {
		stopHotkeys = registerHotkeys(ctx, tk, cfg.NewWindowHotkey, surface, logger)
	}

	if !opts.NoWindow {
		go func() {
			inst, err := surface.CreateWindow(ctx, "", "")
			if err != nil {
				logger.Error("failed to open first window", "error", err)
				return
			}
			logger.Info("window opened", "window", inst.Label)
		}()
	}

	if cfg.WatchConfig {
		if path, err := configPath(opts.ConfigPath); err != nil {
			logger.Warn("config watch disabled", "error", err)
		} else if err := watchConfig(ctx, path, reload, logger); err != nil {
			logger.Warn("config watch disabled", "path", path, "error", err)
		}
	}

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				stopHotkeys()
				closeToolkit()
				return
			case <-hupCh:
				logger.Info("received SIGHUP, reloading config")
				_ = reload(ctx)
			}
		}
	}()

	logger.Info("viewhost daemon started", "socket", socketPath)
	tk.EventLoop()
	logger.Info("shutting down viewhost daemon")
	return nil
}

// AuditConfig maps the audit section of cfg onto the audit logger's
// settings.
func AuditConfig(cfg *config.Config) audit.Config {
	a := cfg.GetAuditConfig()
	return audit.Config{
		Enabled:        a.Enabled,
		Level:          audit.ParseLevel(a.Level),
		FilePath:       a.File,
		MaxSizeMB:      a.MaxSizeMB,
		MaxFiles:       a.MaxFiles,
		IncludeContent: a.IncludeContent,
		PreviewLength:  a.PreviewLength,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func configPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.DefaultConfigPath()
}

// registerHotkeys binds the new-window hotkey and returns the function that
// releases the grab. It must run before the toolkit connection closes.
func registerHotkeys(ctx context.Context, tk platform.Toolkit, keySequence string, opener hotkeys.WindowOpener, logger *slog.Logger) func() {
	noop := func() {}
	handler, err := hotkeys.NewHandler(tk, logger)
	if errors.Is(err, hotkeys.ErrUnsupported) {
		logger.Info("global hotkeys disabled", "reason", err)
		return noop
	}
	if err != nil {
		logger.Warn("failed to set up hotkeys", "error", err)
		return noop
	}
	if err := handler.RegisterNewWindow(ctx, keySequence, opener); err != nil {
		logger.Warn("failed to register new-window hotkey", "hotkey", keySequence, "error", err)
		return noop
	}
	logger.Info("new-window hotkey registered", "hotkey", keySequence)
	return func() {
		handler.Unregister()
		logger.Debug("new-window hotkey released", "hotkey", keySequence)
	}
}

func writePIDFile() error {
	path, err := runtimepath.PIDPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600)
}

func removePIDFile() {
	if path, err := runtimepath.PIDPath(); err == nil {
		os.Remove(path)
	}
}
