// Package mcp implements the Model Context Protocol server.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rsned/production-planner/internal/logger"
	"github.com/rsned/production-planner/internal/planner/engine"
	"github.com/rsned/production-planner/pkg/planner"
)

// LineSource loads saved production lines.
type LineSource interface {
	GetProductionLine(ctx context.Context, userKey, lineID string) (*planner.ProductionLine, error)
}

// Server implements an MCP server over stdio.
type Server struct {
	engine   *engine.Engine
	lines    LineSource
	logger   *slog.Logger
	handlers map[string]MethodHandler
}

// MethodHandler handles a specific JSON-RPC method.
type MethodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NewServer creates a new MCP server. lines may be nil, in which case
// production_line_optimize reports an error.
func NewServer(eng *engine.Engine, lines LineSource, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	s := &Server{
		engine:   eng,
		lines:    lines,
		logger:   log,
		handlers: make(map[string]MethodHandler),
	}

	// Register handlers
	s.handlers["initialize"] = s.handleInitialize
	s.handlers["tools/list"] = s.handleToolsList
	s.handlers["tools/call"] = s.handleToolsCall

	return s
}

// Request represents a JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidReq     = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// Planner error codes, in the JSON-RPC server error range.
const (
	ErrCodeInfeasible     = -32001
	ErrCodeEmptyCandidate = -32002
	ErrCodeInvalidRecipe  = -32003
	ErrCodeSolverTimeout  = -32004
	ErrCodeDataIntegrity  = -32005
)

// errInvalidParams marks argument decoding failures.
var errInvalidParams = errors.New("invalid params")

// Run serves requests from stdin until EOF or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited requests from r and writes responses to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	s.logger.Info("MCP server starting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if resp := s.handleRequest(ctx, line); resp != nil {
				if werr := s.writeResponse(w, resp); werr != nil {
					s.logger.Error("failed to write response", "error", werr)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
	}
}

// handleRequest processes a single request. Notifications (no id) get no
// response.
func (s *Server) handleRequest(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error: &Error{
				Code:    ErrCodeParse,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	ctx = logger.WithRequestID(ctx, logger.GenerateRequestID())
	log := logger.FromContext(ctx, s.logger)
	log.Debug("received request", "method", req.Method, "id", req.ID)

	handler, ok := s.handlers[req.Method]
	if !ok {
		if req.ID == nil {
			return nil
		}
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   toRPCError(err),
		}
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

// toRPCError maps planner errors to JSON-RPC error codes.
func toRPCError(err error) *Error {
	rpcErr := &Error{Code: ErrCodeInternal, Message: err.Error()}

	var (
		infeasible *planner.OptimizationInfeasibleError
		empty      *planner.EmptyCandidateSetError
		invalid    *planner.InvalidRecipeError
	)
	switch {
	case errors.As(err, &infeasible):
		rpcErr.Code = ErrCodeInfeasible
		rpcErr.Data = map[string]any{"family": infeasible.Family}
	case errors.As(err, &empty):
		rpcErr.Code = ErrCodeEmptyCandidate
		rpcErr.Data = map[string]any{"item_ids": empty.ItemIDs}
	case errors.As(err, &invalid):
		rpcErr.Code = ErrCodeInvalidRecipe
		rpcErr.Data = map[string]any{"recipe_id": invalid.RecipeID}
	case errors.Is(err, planner.ErrSolverTimeout):
		rpcErr.Code = ErrCodeSolverTimeout
	case errors.Is(err, planner.ErrDataIntegrity):
		rpcErr.Code = ErrCodeDataIntegrity
	case errors.Is(err, errInvalidParams), errors.Is(err, planner.ErrInvalidRequest):
		rpcErr.Code = ErrCodeInvalidParams
	}
	return rpcErr
}

// writeResponse writes a JSON-RPC response.
func (s *Server) writeResponse(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}

	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Initialize result.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	return InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo: ServerInfo{
			Name:    "production-planner",
			Version: "0.1.0",
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{},
		},
	}, nil
}

// ToolsListResult is the response for tools/list.
type ToolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (any, error) {
	return ToolsListResult{
		Tools: GetToolDefinitions(),
	}, nil
}

// ToolCallParams are the parameters for tools/call.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolCallResult is the response for tools/call.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p ToolCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	logger.FromContext(ctx, s.logger).Debug("calling tool", "name", p.Name)

	result, err := s.callTool(ctx, p.Name, p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool %s failed: %w", p.Name, err)
	}

	// Marshal result to JSON for text output
	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}

	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: string(resultJSON)}},
	}, nil
}

// callTool dispatches to the appropriate tool handler.
func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case "optimize_production":
		return s.toolOptimizeProduction(ctx, args)
	case "production_line_optimize":
		return s.toolProductionLineOptimize(ctx, args)
	case "recipe_lookup":
		return s.toolRecipeLookup(ctx, args)
	case "item_uses":
		return s.toolItemUses(ctx, args)
	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errInvalidParams, name)
	}
}
