package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/daemon"
	"github.com/1broseidon/viewhost/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "open":
		os.Exit(runOpen(os.Args[2:]))
	case "navigate", "eval", "devtools", "resize", "resize-viewport", "move-viewport", "on-top", "mode", "close":
		os.Exit(runControl(os.Args[1], os.Args[2:]))
	case "panel":
		os.Exit(runPanel(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: viewhost <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the viewhost daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "  list                List windows and their viewports")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  open [URL]          Open a new window")
	fmt.Fprintln(w, "  navigate URL        Load a URL in a window's viewport")
	fmt.Fprintln(w, "  eval SCRIPT         Run JavaScript in a window's viewport")
	fmt.Fprintln(w, "  devtools            Open the web inspector")
	fmt.Fprintln(w, "  resize W H          Resize the host window")
	fmt.Fprintln(w, "  resize-viewport W H Resize the viewport")
	fmt.Fprintln(w, "  move-viewport X Y   Move the viewport inside its window")
	fmt.Fprintln(w, "  on-top on|off       Toggle always-on-top")
	fmt.Fprintln(w, "  mode mobile|desktop Switch client identity (recreates the viewport)")
	fmt.Fprintln(w, "  close               Close a window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  panel               Open the interactive control panel")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Window commands take --window LABEL (default: the most recently opened window).")
	fmt.Fprintln(w, "Run 'viewhost <command> --help' for command-specific options.")
}

// newLogger builds the stderr logger used by long-running commands.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// parseFlags parses fs and maps help and usage errors to exit codes. ok is
// false when the caller should return code.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

// fail prints err and returns the exit code for a failed command.
func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path (default: ~/.config/viewhost/config.yaml)")
	backend := fs.String("backend", "", "Toolkit backend: auto, x11 or headless (default: from config)")
	noWindow := fs.Bool("no-window", false, "Do not open a window on startup")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost daemon [--config PATH] [--backend NAME] [--no-window]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	level := "info"
	if res, err := loadConfig(*path); err == nil {
		level = res.Config.LogLevel
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := daemon.Run(ctx, daemon.Options{
		ConfigPath: *path,
		Backend:    *backend,
		NoWindow:   *noWindow,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return fail(err)
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("backend:        %s\n", status.Backend)
	fmt.Printf("window_count:   %d\n", status.WindowCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Re-read the config file. Open windows keep their geometry; new")
		fmt.Fprintln(os.Stderr, "windows and mode switches use the new settings.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config reloaded")
	return 0
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Output JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost list [--json]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	windows, err := ipc.NewClient().ListWindows()
	if err != nil {
		return fail(err)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(windows); err != nil {
			return fail(err)
		}
		return 0
	}
	if len(windows) == 0 {
		fmt.Println("no windows open")
		return 0
	}
	for _, w := range windows {
		b := w.Window.Bounds
		onTop := ""
		if w.Window.AlwaysOnTop {
			onTop = "  on-top"
		}
		fmt.Printf("%s  %dx%d+%d+%d%s\n", w.Window.Label, b.Width, b.Height, b.X, b.Y, onTop)
		for _, vp := range w.Viewports {
			marker := " "
			if w.Active != nil && w.Active.Label == vp.Label {
				marker = "*"
			}
			fmt.Printf("  %s %s  %dx%d+%d+%d  %s\n", marker, vp.Label, vp.Bounds.Width, vp.Bounds.Height, vp.Bounds.X, vp.Bounds.Y, vp.URL)
		}
	}
	return 0
}

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mode := fs.String("mode", "", "Client identity: mobile or desktop (default: from config)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost open [--mode mobile|desktop] [URL]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a new host window. Without URL the configured default_url is")
		fmt.Fprintln(os.Stderr, "loaded, or the placeholder page when none is set.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	inst, err := ipc.NewClient().CreateWindow(fs.Arg(0), *mode)
	if err != nil {
		return fail(err)
	}
	fmt.Println(inst.Label)
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, err
		}
	}
	return config.LoadFromPath(path)
}
