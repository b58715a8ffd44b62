package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/viewhost/internal/runtimepath"
	"github.com/1broseidon/viewhost/internal/viewport"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; send surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a client for socketPath.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// send issues one request and decodes the response data into out when out
// is non-nil. ERROR responses come back as *DaemonError.
func (c *Client) send(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	respData, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return &DaemonError{Code: resp.Code, Message: resp.Error}
	}

	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to parse %s data: %w", cmd, err)
		}
	}
	return nil
}

// CreateWindow opens a new host window. Empty url and mode use the daemon's
// configured defaults.
func (c *Client) CreateWindow(url, mode string) (*viewport.WindowInstance, error) {
	var inst viewport.WindowInstance
	if err := c.send(CommandCreateWindow, CreateWindowPayload{URL: url, Mode: mode}, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Navigate loads url into the window's active viewport.
func (c *Client) Navigate(window, url string) error {
	return c.send(CommandNavigate, NavigatePayload{Window: window, URL: url}, nil)
}

// RunScript submits script to the window's active viewport.
func (c *Client) RunScript(window, script string) error {
	return c.send(CommandRunScript, RunScriptPayload{Window: window, Script: script}, nil)
}

// OpenDevtools shows the inspector for the window's active viewport.
func (c *Client) OpenDevtools(window string) error {
	return c.send(CommandOpenDevtools, WindowPayload{Window: window}, nil)
}

// ResizeWindow resizes the host window.
func (c *Client) ResizeWindow(window string, width, height int) error {
	return c.send(CommandResizeWindow, SizePayload{Window: window, Width: width, Height: height}, nil)
}

// ResizeViewport resizes the active viewport.
func (c *Client) ResizeViewport(window string, width, height int) error {
	return c.send(CommandResizeViewport, SizePayload{Window: window, Width: width, Height: height}, nil)
}

// RepositionViewport moves the active viewport within its window.
func (c *Client) RepositionViewport(window string, x, y int) error {
	return c.send(CommandRepositionViewport, PositionPayload{Window: window, X: x, Y: y}, nil)
}

// SetAlwaysOnTop toggles host window stacking.
func (c *Client) SetAlwaysOnTop(window string, enabled bool) error {
	return c.send(CommandSetAlwaysOnTop, AlwaysOnTopPayload{Window: window, Enabled: enabled}, nil)
}

// SwitchClientIdentity recreates the active viewport in mobile or desktop
// mode.
func (c *Client) SwitchClientIdentity(window string, mobile bool, currentURL string) (*viewport.ChildViewport, error) {
	var vp viewport.ChildViewport
	payload := SwitchClientIdentityPayload{Window: window, Mobile: mobile, CurrentURL: currentURL}
	if err := c.send(CommandSwitchClientIdentity, payload, &vp); err != nil {
		return nil, err
	}
	return &vp, nil
}

// CloseWindow destroys a host window.
func (c *Client) CloseWindow(window string) error {
	return c.send(CommandCloseWindow, WindowPayload{Window: window}, nil)
}

// ListWindows returns every managed window.
func (c *Client) ListWindows() ([]viewport.Snapshot, error) {
	var data WindowsData
	if err := c.send(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// ResolveWindow returns window unchanged when set, otherwise the label of
// the most recently created window.
func (c *Client) ResolveWindow(window string) (string, error) {
	if window != "" {
		return window, nil
	}
	windows, err := c.ListWindows()
	if err != nil {
		return "", err
	}
	if len(windows) == 0 {
		return "", fmt.Errorf("no windows open; use 'viewhost open' first")
	}
	return windows[len(windows)-1].Window.Label, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.send(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload asks the daemon to re-read its configuration.
func (c *Client) Reload() error {
	return c.send(CommandReload, nil, nil)
}
