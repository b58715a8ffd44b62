// Package viewport owns the child viewports embedded in host windows: how
// they are named, which one is active, and how they are replaced when an
// attribute fixed at construction has to change.
package viewport

import (
	"fmt"

	"github.com/1broseidon/viewhost/internal/platform"
)

// Kind tags a viewport as the base surface of a window or as the product of
// a recreation. ID is the window id for base viewports and the global
// recreation generation for recreated ones.
type Kind struct {
	Recreated bool
	ID        uint32
}

// Base returns the kind of the first viewport of window id.
func Base(windowID uint32) Kind {
	return Kind{ID: windowID}
}

// Recreated returns the kind of a viewport minted by recreation gen.
func Recreated(generation uint32) Kind {
	return Kind{Recreated: true, ID: generation}
}

// Label renders the toolkit label for the kind.
func (k Kind) Label() string {
	if k.Recreated {
		return fmt.Sprintf("webview-recreation-%d", k.ID)
	}
	return fmt.Sprintf("webview-%d", k.ID)
}

func (k Kind) String() string {
	if k.Recreated {
		return fmt.Sprintf("recreated(%d)", k.ID)
	}
	return fmt.Sprintf("base(%d)", k.ID)
}

// WindowLabel renders the toolkit label of host window id.
func WindowLabel(windowID uint32) string {
	return fmt.Sprintf("window-%d", windowID)
}

// WindowInstance is a host window created by the manager.
type WindowInstance struct {
	InstanceID  uint32        `json:"instance_id"`
	Label       string        `json:"label"`
	Bounds      platform.Rect `json:"bounds"`
	AlwaysOnTop bool          `json:"always_on_top"`
}

// ChildViewport is a viewport attached to a host window.
type ChildViewport struct {
	Label          string        `json:"label"`
	Kind           Kind          `json:"-"`
	Bounds         platform.Rect `json:"bounds"`
	URL            string        `json:"url,omitempty"`
	ClientIdentity string        `json:"client_identity,omitempty"`
}
