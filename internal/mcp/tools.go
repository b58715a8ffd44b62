package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/viewhost/internal/viewport"
)

func (s *Server) handleCreateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateWindowInput) (*mcpsdk.CallToolResult, CreateWindowOutput, error) {
	inst, err := s.daemon.CreateWindow(args.URL, args.Mode)
	if err != nil {
		return nil, CreateWindowOutput{}, err
	}
	s.logger.Info("mcp: window created", "window", inst.Label)
	return nil, CreateWindowOutput{
		Window:   *inst,
		Viewport: viewport.Base(inst.InstanceID).Label(),
	}, nil
}

func (s *Server) handleNavigate(_ context.Context, _ *mcpsdk.CallToolRequest, args NavigateInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, func(window string) error {
		return s.daemon.Navigate(window, args.URL)
	})
}

func (s *Server) handleRunScript(_ context.Context, _ *mcpsdk.CallToolRequest, args RunScriptInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, func(window string) error {
		return s.daemon.RunScript(window, args.Script)
	})
}

func (s *Server) handleOpenDevtools(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, s.daemon.OpenDevtools)
}

func (s *Server) handleResizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args SizeInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, func(window string) error {
		return s.daemon.ResizeWindow(window, args.Width, args.Height)
	})
}

func (s *Server) handleResizeViewport(_ context.Context, _ *mcpsdk.CallToolRequest, args SizeInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, func(window string) error {
		return s.daemon.ResizeViewport(window, args.Width, args.Height)
	})
}

func (s *Server) handleRepositionViewport(_ context.Context, _ *mcpsdk.CallToolRequest, args PositionInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, func(window string) error {
		return s.daemon.RepositionViewport(window, args.X, args.Y)
	})
}

func (s *Server) handleSetAlwaysOnTop(_ context.Context, _ *mcpsdk.CallToolRequest, args AlwaysOnTopInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack(args.Window, func(window string) error {
		return s.daemon.SetAlwaysOnTop(window, args.Enabled)
	})
}

func (s *Server) handleSwitchClientIdentity(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchClientIdentityInput) (*mcpsdk.CallToolResult, SwitchClientIdentityOutput, error) {
	window, err := s.daemon.ResolveWindow(args.Window)
	if err != nil {
		return nil, SwitchClientIdentityOutput{}, err
	}
	vp, err := s.daemon.SwitchClientIdentity(window, args.Mobile, args.CurrentURL)
	if err != nil {
		return nil, SwitchClientIdentityOutput{}, err
	}
	s.logger.Info("mcp: client identity switched", "window", window, "viewport", vp.Label, "mobile", args.Mobile)
	return nil, SwitchClientIdentityOutput{Window: window, Viewport: *vp}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}

// ack resolves the target window and runs fn against it.
func (s *Server) ack(window string, fn func(window string) error) (*mcpsdk.CallToolResult, AckOutput, error) {
	resolved, err := s.daemon.ResolveWindow(window)
	if err != nil {
		return nil, AckOutput{}, err
	}
	if err := fn(resolved); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{Window: resolved, OK: true}, nil
}
