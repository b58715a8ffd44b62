package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/viewhost/internal/command"
	"github.com/1broseidon/viewhost/internal/config"
	"github.com/1broseidon/viewhost/internal/runtimepath"
)

// ReloadFunc re-reads configuration and applies it.
type ReloadFunc func(ctx context.Context) error

// ServerOptions configures a Server.
type ServerOptions struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Surface    *command.Surface
	Reload     ReloadFunc
	Backend    string
	Logger     *slog.Logger
	// RequestTimeout bounds how long a request waits for the UI loop.
	RequestTimeout time.Duration
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	surface      *command.Surface
	reload       ReloadFunc
	backend      string
	logger       *slog.Logger
	timeout      time.Duration
	startTime    time.Time
	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(opts ServerOptions) (*Server, error) {
	socketPath := opts.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	if opts.Surface == nil {
		return nil, fmt.Errorf("ipc server requires a command surface")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		surface:    opts.Surface,
		reload:     opts.Reload,
		backend:    opts.Backend,
		logger:     logger,
		timeout:    timeout,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	var resp *Response
	req, err := ParseRequest(data)
	if err != nil {
		resp = NewErrorResponse(command.CodeInvalidArgument, fmt.Sprintf("Invalid request: %v", err))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		resp = s.handleCommand(ctx, req)
		cancel()
	}

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandCreateWindow:
		var p CreateWindowPayload
		return handle(optional(req.Payload), &p, func() (any, error) {
			return s.surface.CreateWindow(ctx, p.URL, config.Mode(p.Mode))
		})
	case CommandNavigate:
		var p NavigatePayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.Navigate(ctx, p.Window, p.URL)
		})
	case CommandRunScript:
		var p RunScriptPayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.RunScript(ctx, p.Window, p.Script)
		})
	case CommandOpenDevtools:
		var p WindowPayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.OpenDevtools(ctx, p.Window)
		})
	case CommandResizeWindow:
		var p SizePayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.ResizeWindow(ctx, p.Window, p.Width, p.Height)
		})
	case CommandResizeViewport:
		var p SizePayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.ResizeViewport(ctx, p.Window, p.Width, p.Height)
		})
	case CommandRepositionViewport:
		var p PositionPayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.RepositionViewport(ctx, p.Window, p.X, p.Y)
		})
	case CommandSetAlwaysOnTop:
		var p AlwaysOnTopPayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.SetAlwaysOnTop(ctx, p.Window, p.Enabled)
		})
	case CommandSwitchClientIdentity:
		var p SwitchClientIdentityPayload
		return handle(req.Payload, &p, func() (any, error) {
			return s.surface.SwitchClientIdentity(ctx, p.Window, p.Mobile, p.CurrentURL)
		})
	case CommandCloseWindow:
		var p WindowPayload
		return handle(req.Payload, &p, func() (any, error) {
			return nil, s.surface.CloseWindow(ctx, p.Window)
		})
	case CommandListWindows:
		return handle(nil, nil, func() (any, error) {
			windows, err := s.surface.ListWindows(ctx)
			return WindowsData{Windows: windows}, err
		})
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandReload:
		return s.handleReload(ctx)
	default:
		return NewErrorResponse(command.CodeInvalidArgument, fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// optional lets commands whose fields all have defaults omit the payload.
func optional(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage("{}")
	}
	return payload
}

// handle decodes payload into p (when p is non-nil), runs fn and renders the
// result.
func handle(payload json.RawMessage, p any, fn func() (any, error)) *Response {
	if p != nil {
		if len(payload) == 0 {
			return NewErrorResponse(command.CodeInvalidArgument, "payload is required")
		}
		if err := json.Unmarshal(payload, p); err != nil {
			return NewErrorResponse(command.CodeInvalidArgument, fmt.Sprintf("Invalid payload: %v", err))
		}
	}
	data, err := fn()
	if err != nil {
		return NewErrorResponse(command.Code(err), command.Message(err))
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(command.CodeInternal, err.Error())
	}
	return resp
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	windows, err := s.surface.ListWindows(ctx)
	if err != nil {
		return NewErrorResponse(command.Code(err), command.Message(err))
	}
	status := StatusData{
		Backend:       s.backend,
		WindowCount:   len(windows),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}
	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleReload(ctx context.Context) *Response {
	s.logger.Info("IPC: received RELOAD")
	if s.reload == nil {
		return NewErrorResponse(command.CodeUnavailable, "reload is not supported by this daemon")
	}
	if err := s.reload(ctx); err != nil {
		return NewErrorResponse(command.CodeInvalidArgument, fmt.Sprintf("Failed to reload config: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// Stop closes the listener, waits for in-flight requests and removes the
// socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
