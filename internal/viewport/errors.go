package viewport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL reports a malformed URL. The caller can correct it.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrViewportNotFound reports a window with no active viewport, either
	// never created or torn down with no successor attached.
	ErrViewportNotFound = errors.New("viewport not found")
)

// HostOp names the toolkit operation behind a HostError.
type HostOp string

const (
	OpCreate      HostOp = "create"
	OpClose       HostOp = "close"
	OpNavigate    HostOp = "navigate"
	OpEval        HostOp = "eval"
	OpResize      HostOp = "resize"
	OpMove        HostOp = "move"
	OpAlwaysOnTop HostOp = "always-on-top"
	OpDevtools    HostOp = "devtools"
	OpRecreate    HostOp = "recreate"
)

// HostError wraps a failure reported by the host toolkit.
type HostError struct {
	Op     HostOp
	Window string
	Err    error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s failed for window %q: %v", e.Op, e.Window, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

func hostErr(op HostOp, window string, err error) error {
	return &HostError{Op: op, Window: window, Err: err}
}
