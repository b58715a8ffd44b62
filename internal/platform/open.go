package platform

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendAuto     = "auto"
	BackendX11      = "x11"
	BackendHeadless = "headless"
)

// Open returns the toolkit for a backend name. "auto" tries X11 and falls
// back to the headless toolkit when no display is reachable.
func Open(backend, display string, logger *slog.Logger) (Toolkit, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch backend {
	case BackendHeadless:
		return NewMemoryToolkit(), nil
	case BackendX11:
		return openX11(display)
	case BackendAuto, "":
		tk, err := openX11(display)
		if err != nil {
			logger.Warn("x11 unavailable, using headless toolkit", "error", err)
			return NewMemoryToolkit(), nil
		}
		return tk, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s, %s or %s)", backend, BackendAuto, BackendX11, BackendHeadless)
	}
}
