package mcp

import "github.com/1broseidon/viewhost/internal/viewport"

// CreateWindowInput is the input for the create_window tool.
type CreateWindowInput struct {
	URL  string `json:"url,omitempty" jsonschema:"URL to load (default: the configured default URL, else about:blank)"`
	Mode string `json:"mode,omitempty" jsonschema:"Client identity mode: mobile or desktop (default: configured default_mode)"`
}

// CreateWindowOutput is the output for the create_window tool.
type CreateWindowOutput struct {
	Window   viewport.WindowInstance `json:"window"`
	Viewport string                  `json:"viewport"`
}

// WindowInput addresses a window. An empty window targets the most recently
// opened one.
type WindowInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window label such as window-1 (default: most recently opened window)"`
}

// NavigateInput is the input for the navigate tool.
type NavigateInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window label (default: most recently opened window)"`
	URL    string `json:"url" jsonschema:"required,Absolute URL to load"`
}

// RunScriptInput is the input for the run_script tool.
type RunScriptInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window label (default: most recently opened window)"`
	Script string `json:"script" jsonschema:"required,JavaScript to run in the page. The result is not returned."`
}

// SizeInput is the input for the resize tools.
type SizeInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window label (default: most recently opened window)"`
	Width  int    `json:"width" jsonschema:"required,Width in pixels"`
	Height int    `json:"height" jsonschema:"required,Height in pixels"`
}

// PositionInput is the input for the reposition_viewport tool.
type PositionInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window label (default: most recently opened window)"`
	X      int    `json:"x" jsonschema:"X offset inside the host window"`
	Y      int    `json:"y" jsonschema:"Y offset inside the host window"`
}

// AlwaysOnTopInput is the input for the set_always_on_top tool.
type AlwaysOnTopInput struct {
	Window  string `json:"window,omitempty" jsonschema:"Window label (default: most recently opened window)"`
	Enabled bool   `json:"enabled" jsonschema:"Keep the window above others"`
}

// SwitchClientIdentityInput is the input for the switch_client_identity tool.
type SwitchClientIdentityInput struct {
	Window     string `json:"window,omitempty" jsonschema:"Window label (default: most recently opened window)"`
	Mobile     bool   `json:"mobile" jsonschema:"true for the mobile identity, false for desktop"`
	CurrentURL string `json:"current_url,omitempty" jsonschema:"URL to reload after recreation (default: about:blank)"`
}

// SwitchClientIdentityOutput is the output for the switch_client_identity tool.
type SwitchClientIdentityOutput struct {
	Window   string                 `json:"window"`
	Viewport viewport.ChildViewport `json:"viewport"`
}

// ListWindowsInput is the (empty) input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []viewport.Snapshot `json:"windows"`
}

// AckOutput is returned by tools with no other result.
type AckOutput struct {
	Window string `json:"window"`
	OK     bool   `json:"ok"`
}
