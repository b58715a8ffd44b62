package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/viewhost/internal/viewport"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandCreateWindow         CommandType = "CREATE_WINDOW"
	CommandNavigate             CommandType = "NAVIGATE"
	CommandRunScript            CommandType = "RUN_SCRIPT"
	CommandOpenDevtools         CommandType = "OPEN_DEVTOOLS"
	CommandResizeWindow         CommandType = "RESIZE_WINDOW"
	CommandResizeViewport       CommandType = "RESIZE_VIEWPORT"
	CommandRepositionViewport   CommandType = "REPOSITION_VIEWPORT"
	CommandSetAlwaysOnTop       CommandType = "SET_ALWAYS_ON_TOP"
	CommandSwitchClientIdentity CommandType = "SWITCH_CLIENT_IDENTITY"
	CommandCloseWindow          CommandType = "CLOSE_WINDOW"
	CommandListWindows          CommandType = "LIST_WINDOWS"
	CommandGetStatus            CommandType = "GET_STATUS"
	CommandReload               CommandType = "RELOAD"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Code   string          `json:"code,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Backend       string `json:"backend"`
	WindowCount   int    `json:"window_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []viewport.Snapshot `json:"windows"`
}

type CreateWindowPayload struct {
	URL  string `json:"url,omitempty"`
	Mode string `json:"mode,omitempty"` // mobile, desktop or empty for the configured default
}

type WindowPayload struct {
	Window string `json:"window"`
}

type NavigatePayload struct {
	Window string `json:"window"`
	URL    string `json:"url"`
}

type RunScriptPayload struct {
	Window string `json:"window"`
	Script string `json:"script"`
}

type SizePayload struct {
	Window string `json:"window"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type PositionPayload struct {
	Window string `json:"window"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type AlwaysOnTopPayload struct {
	Window  string `json:"window"`
	Enabled bool   `json:"enabled"`
}

type SwitchClientIdentityPayload struct {
	Window     string `json:"window"`
	Mobile     bool   `json:"mobile"`
	CurrentURL string `json:"current_url,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a code and message
func NewErrorResponse(code, errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Code:   code,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// DaemonError is an ERROR response surfaced by the client.
type DaemonError struct {
	Code    string
	Message string
}

func (e *DaemonError) Error() string {
	if e.Code == "" {
		return "daemon error: " + e.Message
	}
	return fmt.Sprintf("daemon error [%s]: %s", e.Code, e.Message)
}
