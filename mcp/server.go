package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/mattt/mcpdemo/jsonrpc"
	"github.com/mattt/mcpdemo/tools"
)

// Handler processes a single decoded request.
type Handler interface {
	Handle(ctx context.Context, request Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, request Request) Response

func (f HandlerFunc) Handle(ctx context.Context, request Request) Response {
	return f(ctx, request)
}

// Server dispatches requests in either dialect to the registered tools
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger
}

var _ Handler = &Server{}

// ServerOption configures a Server
type ServerOption func(*Server) error

// WithRegistry sets the tools the server can discover and execute.
func WithRegistry(registry *tools.Registry) ServerOption {
	return func(s *Server) error {
		if registry == nil {
			return fmt.Errorf("registry cannot be nil")
		}
		s.registry = registry
		return nil
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates a new MCP server instance.
// Without WithRegistry it serves tools.Builtin().
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.registry == nil {
		s.registry = tools.Builtin()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return s, nil
}

// Registry returns the tools served by s.
func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// Handle processes a single request and returns a response in the same dialect
func (s *Server) Handle(ctx context.Context, request Request) Response {
	var response Response
	switch req := request.(type) {
	case *JSONRPCRequest:
		response = s.handleJSONRPC(ctx, req)
	case *EnvelopeRequest:
		response = s.handleEnvelope(ctx, req)
	default:
		response = NewEnvelopeError(request.RequestID().OrNull(),
			NewError(ErrInternalServer, "unsupported request type %T", request))
	}

	s.logger.Debug("sending response",
		"dialect", request.dialect(),
		"method", request.RequestMethod(),
		"id", request.RequestID().GoString(),
		"failed", response.Failed())
	return response
}

func (s *Server) handleJSONRPC(_ context.Context, req *JSONRPCRequest) jsonrpc.Response {
	s.logger.Debug("received JSON-RPC request",
		"method", req.Method,
		"id", req.ID.GoString(),
		"params", string(req.Params))

	switch req.Method {
	case MethodInitialize:
		return jsonrpc.NewResponse(req.ID, map[string]any{"capabilities": map[string]any{}}, nil)
	case MethodShutdown:
		s.logger.Info("received shutdown request; server will allow exit")
		return jsonrpc.NewResponse(req.ID, nil, nil)
	default:
		return jsonrpc.NewResponse(req.ID, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}
}

func (s *Server) handleEnvelope(ctx context.Context, req *EnvelopeRequest) *EnvelopeResponse {
	s.logger.Debug("received envelope request",
		"method", req.Method,
		"toolName", req.ToolName,
		"id", req.ID.GoString(),
		"mcp_version", req.MCPVersion)

	// An absent version is accepted as compatible.
	if req.MCPVersion != "" && req.MCPVersion != Version {
		return NewEnvelopeError(req.ID, NewError(ErrVersionMismatch,
			"unsupported MCP version: %s, expected %s", req.MCPVersion, Version))
	}

	switch req.Method {
	case MethodDiscover:
		return s.handleDiscover(req)
	case MethodExecute:
		return s.handleExecute(ctx, req)
	default:
		return NewEnvelopeError(req.ID, NewError(ErrMethodNotFound,
			"unknown method: %s", req.Method))
	}
}

func (s *Server) handleDiscover(req *EnvelopeRequest) *EnvelopeResponse {
	return NewEnvelopeResult(req.ID, DiscoverResult{
		Toolsets: []tools.Toolset{s.registry.Toolset()},
	})
}

// DiscoverResult is the result of a discover request
type DiscoverResult struct {
	Toolsets []tools.Toolset `json:"toolsets"`
}

const unknownToolError = "unknown error while executing tool"

func (s *Server) handleExecute(ctx context.Context, req *EnvelopeRequest) *EnvelopeResponse {
	tool, ok := s.registry.Lookup(req.ToolName)
	if !ok || req.toolNameNotString {
		return NewEnvelopeError(req.ID, NewError(ErrToolNotFound,
			"tool not found: %s", req.ToolName))
	}

	s.logger.Debug("executing tool", "tool", tool.Name, "inputs", string(req.Inputs))

	var outputs map[string]any
	inputs, err := req.DecodeInputs()
	if err == nil {
		outputs, err = s.call(ctx, tool, inputs)
	}
	if err != nil {
		s.logger.Error("error executing tool", "tool", tool.Name, "error", err)
		message := err.Error()
		if message == "" {
			message = unknownToolError
		}
		return NewEnvelopeError(req.ID, &Error{Code: ErrToolExecution, Message: message})
	}

	return NewEnvelopeResult(req.ID, outputs)
}

// call runs the tool and converts a panic into an error.
func (s *Server) call(ctx context.Context, tool *tools.Definition, inputs map[string]any) (outputs map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", "tool", tool.Name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%v", r)
		}
	}()
	return tool.Call(ctx, inputs)
}
