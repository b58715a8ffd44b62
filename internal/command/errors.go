package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/viewhost/internal/uiloop"
	"github.com/1broseidon/viewhost/internal/viewport"
)

// ErrInvalidArgument reports a missing or out-of-range argument.
var ErrInvalidArgument = errors.New("invalid argument")

// Stable error codes reported to callers.
const (
	CodeInvalidURL       = "INVALID_URL"
	CodeViewportNotFound = "VIEWPORT_NOT_FOUND"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNavigationFailed = "NAVIGATION_FAILED"
	CodeExecutionFailed  = "EXECUTION_FAILED"
	CodeResizeFailed     = "RESIZE_FAILED"
	CodeMoveFailed       = "MOVE_FAILED"
	CodeRecreateFailed   = "RECREATE_FAILED"
	CodeDevtoolsFailed   = "DEVTOOLS_FAILED"
	CodeCreateFailed     = "CREATE_FAILED"
	CodeCloseFailed      = "CLOSE_FAILED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// Always-on-top shares the resize code: both change the host window frame.
var hostCodes = map[viewport.HostOp]string{
	viewport.OpNavigate:    CodeNavigationFailed,
	viewport.OpEval:        CodeExecutionFailed,
	viewport.OpResize:      CodeResizeFailed,
	viewport.OpAlwaysOnTop: CodeResizeFailed,
	viewport.OpMove:        CodeMoveFailed,
	viewport.OpRecreate:    CodeRecreateFailed,
	viewport.OpDevtools:    CodeDevtoolsFailed,
	viewport.OpCreate:      CodeCreateFailed,
	viewport.OpClose:       CodeCloseFailed,
}

// Code maps err to a stable code. A nil error has no code.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var he *viewport.HostError
	switch {
	case errors.Is(err, viewport.ErrInvalidURL):
		return CodeInvalidURL
	case errors.Is(err, viewport.ErrViewportNotFound):
		return CodeViewportNotFound
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.As(err, &he):
		if code, ok := hostCodes[he.Op]; ok {
			return code
		}
		return CodeInternal
	case errors.Is(err, uiloop.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Message renders err for a human caller.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var he *viewport.HostError
	switch Code(err) {
	case CodeInvalidURL:
		return fmt.Sprintf("Invalid URL: %v", err)
	case CodeViewportNotFound:
		return fmt.Sprintf("Viewport not found: %v", err)
	case CodeInvalidArgument:
		return fmt.Sprintf("Invalid argument: %v", err)
	case CodeUnavailable:
		return fmt.Sprintf("Daemon unavailable: %v", err)
	}
	if errors.As(err, &he) {
		return fmt.Sprintf("Failed to %s window %s: %v", he.Op, he.Window, he.Err)
	}
	return err.Error()
}
