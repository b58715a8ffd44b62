package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/1broseidon/viewhost/internal/ipc"
)

// controlCommand is a subcommand that acts on one window.
type controlCommand struct {
	usage string
	nargs int
	run   func(c *ipc.Client, window string, fs *flag.FlagSet) error
}

var controlCommands = map[string]controlCommand{
	"navigate": {
		usage: "navigate [--window LABEL] URL",
		nargs: 1,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			return c.Navigate(window, fs.Arg(0))
		},
	},
	"eval": {
		usage: "eval [--window LABEL] SCRIPT",
		nargs: 1,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			return c.RunScript(window, fs.Arg(0))
		},
	},
	"devtools": {
		usage: "devtools [--window LABEL]",
		run: func(c *ipc.Client, window string, _ *flag.FlagSet) error {
			return c.OpenDevtools(window)
		},
	},
	"resize": {
		usage: "resize [--window LABEL] WIDTH HEIGHT",
		nargs: 2,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			w, h, err := intPair(fs.Arg(0), fs.Arg(1))
			if err != nil {
				return err
			}
			return c.ResizeWindow(window, w, h)
		},
	},
	"resize-viewport": {
		usage: "resize-viewport [--window LABEL] WIDTH HEIGHT",
		nargs: 2,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			w, h, err := intPair(fs.Arg(0), fs.Arg(1))
			if err != nil {
				return err
			}
			return c.ResizeViewport(window, w, h)
		},
	},
	"move-viewport": {
		usage: "move-viewport [--window LABEL] X Y",
		nargs: 2,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			x, y, err := intPair(fs.Arg(0), fs.Arg(1))
			if err != nil {
				return err
			}
			return c.RepositionViewport(window, x, y)
		},
	},
	"on-top": {
		usage: "on-top [--window LABEL] on|off",
		nargs: 1,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			enabled, err := parseOnOff(fs.Arg(0))
			if err != nil {
				return err
			}
			return c.SetAlwaysOnTop(window, enabled)
		},
	},
	"mode": {
		usage: "mode [--window LABEL] [--url URL] mobile|desktop",
		nargs: 1,
		run: func(c *ipc.Client, window string, fs *flag.FlagSet) error {
			var mobile bool
			switch fs.Arg(0) {
			case "mobile":
				mobile = true
			case "desktop":
			default:
				return fmt.Errorf("mode must be mobile or desktop, got %q", fs.Arg(0))
			}
			current := fs.Lookup("url").Value.String()
			if current == "" {
				current = activeURL(c, window)
			}
			vp, err := c.SwitchClientIdentity(window, mobile, current)
			if err != nil {
				return err
			}
			fmt.Println(vp.Label)
			return nil
		},
	},
	"close": {
		usage: "close [--window LABEL]",
		run: func(c *ipc.Client, window string, _ *flag.FlagSet) error {
			return c.CloseWindow(window)
		},
	},
}

func runControl(name string, args []string) int {
	cmd, ok := controlCommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		return 2
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	window := fs.String("window", "", "Window label, e.g. window-1 (default: most recently opened window)")
	if name == "mode" {
		fs.String("url", "", "URL to load after recreation (default: the viewport's current URL)")
	}
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost "+cmd.usage)
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != cmd.nargs {
		fmt.Fprintf(os.Stderr, "%s takes %d argument(s), got %d\n", name, cmd.nargs, fs.NArg())
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	target, err := client.ResolveWindow(*window)
	if err != nil {
		return fail(err)
	}
	if err := cmd.run(client, target, fs); err != nil {
		return fail(err)
	}
	return 0
}

// activeURL returns the URL loaded in window's active viewport, or "" when
// it cannot be determined.
func activeURL(c *ipc.Client, window string) string {
	windows, err := c.ListWindows()
	if err != nil {
		return ""
	}
	for _, w := range windows {
		if w.Window.Label == window && w.Active != nil {
			return w.Active.URL
		}
	}
	return ""
}

func intPair(a, b string) (int, int, error) {
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", a)
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", b)
	}
	return x, y, nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
