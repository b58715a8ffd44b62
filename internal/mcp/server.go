package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/viewhost/internal/ipc"
	"github.com/1broseidon/viewhost/internal/viewport"
)

const (
	ServerName    = "viewhost"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools drive.
type Daemon interface {
	CreateWindow(url, mode string) (*viewport.WindowInstance, error)
	Navigate(window, url string) error
	RunScript(window, script string) error
	OpenDevtools(window string) error
	ResizeWindow(window string, width, height int) error
	ResizeViewport(window string, width, height int) error
	RepositionViewport(window string, x, y int) error
	SetAlwaysOnTop(window string, enabled bool) error
	SwitchClientIdentity(window string, mobile bool, currentURL string) (*viewport.ChildViewport, error)
	ListWindows() ([]viewport.Snapshot, error)
	ResolveWindow(window string) (string, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server exposing viewport control tools. It holds no
// window state; every call is forwarded to the running daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates a new MCP server forwarding to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_window",
		Description: "Open a new host window with an embedded web viewport. Returns the window label (window-N) used by every other tool.",
	}, s.handleCreateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "navigate",
		Description: "Load an absolute URL into the window's active viewport. Geometry and client identity are unchanged.",
	}, s.handleNavigate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_script",
		Description: "Submit JavaScript to the window's active viewport. Only submission success is reported; the script's result is not captured.",
	}, s.handleRunScript)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_devtools",
		Description: "Show the web inspector for the window's active viewport.",
	}, s.handleOpenDevtools)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_window",
		Description: "Resize the host window. The viewport inside keeps its size; call resize_viewport as well for a combined layout.",
	}, s.handleResizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_viewport",
		Description: "Resize the window's active viewport. The host window keeps its size.",
	}, s.handleResizeViewport)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reposition_viewport",
		Description: "Move the active viewport within its host window.",
	}, s.handleRepositionViewport)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_always_on_top",
		Description: "Keep the host window above other windows, or release it.",
	}, s.handleSetAlwaysOnTop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_client_identity",
		Description: "Switch between the mobile and desktop user agent. The viewport is torn down and recreated at the same size and position, then current_url is reloaded.",
	}, s.handleSwitchClientIdentity)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List open host windows with their viewports and which viewport is active.",
	}, s.handleListWindows)
}
