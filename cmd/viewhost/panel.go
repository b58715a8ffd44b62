package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/viewhost/internal/ipc"
	"github.com/1broseidon/viewhost/internal/tui"
)

func runPanel(args []string) int {
	fs := flag.NewFlagSet("panel", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/viewhost/config.yaml)")
	window := fs.String("window", "", "Window to control (default: most recently opened window)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewhost panel [--path PATH] [--window LABEL]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive control panel for a running daemon.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  u          Enter a URL")
		fmt.Fprintln(os.Stderr, "  enter, r   Reload the current URL")
		fmt.Fprintln(os.Stderr, "  h          Load the default URL")
		fmt.Fprintln(os.Stderr, "  m          Toggle mobile/desktop (recreates the viewport)")
		fmt.Fprintln(os.Stderr, "  t          Toggle always-on-top")
		fmt.Fprintln(os.Stderr, "  b          Toggle the barcode strip")
		fmt.Fprintln(os.Stderr, "  k, ctrl+k  Toggle the control menu (esc closes it)")
		fmt.Fprintln(os.Stderr, "  s          Scan a barcode")
		fmt.Fprintln(os.Stderr, "  1-8        Rescan a recent barcode")
		fmt.Fprintln(os.Stderr, "  d          Open devtools")
		fmt.Fprintln(os.Stderr, "  n, ctrl+n  Open a new window")
		fmt.Fprintln(os.Stderr, "  w          Target the next window")
		fmt.Fprintln(os.Stderr, "  D / X      Save / clear the current URL as default_url")
		fmt.Fprintln(os.Stderr, "  q, ctrl+c  Quit")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if err := tui.Run(ipc.NewClient(), tui.Options{ConfigPath: *path, Window: *window}); err != nil {
		return fail(err)
	}
	return 0
}
