package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/target"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/cdpshim/internal/message"
	"github.com/wagiedev/cdpshim/internal/transport"
)

// firstCommandID keeps tool command ids clear of ids a CDP client sharing the
// adapter is likely to use.
const firstCommandID = 1 << 40

// Adapter is the subset of the transport adapter used by the tools.
type Adapter interface {
	Send(ctx context.Context, data []byte) error
	Subscribe(l transport.Listener) (unsubscribe func())
	SessionID() target.SessionID
	TargetInfo() *target.Info
}

// Server is an MCP tool server bound to one adapter.
type Server struct {
	log     *slog.Logger
	name    string
	version string
	adapter Adapter

	mu    sync.RWMutex
	tools map[string]*registeredTool

	nextID    atomic.Int64
	waitersMu sync.Mutex
	waiters   map[int64]chan *message.Response

	closed      chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
}

// registeredTool holds tool metadata and handler.
type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates a server exposing the adapter's tools and subscribes to
// the adapter's responses.
func NewServer(log *slog.Logger, name, version string, adapter Adapter) *Server {
	s := &Server{
		log:     log.With("component", "mcp", "server", name),
		name:    name,
		version: version,
		adapter: adapter,
		tools:   make(map[string]*registeredTool, 4),
		waiters: make(map[int64]chan *message.Response, 8),
		closed:  make(chan struct{}),
	}

	s.nextID.Store(firstCommandID)

	s.AddTool(sendTool(), s.handleSend)
	s.AddTool(targetTool(), s.handleTarget)

	s.unsubscribe = adapter.Subscribe(transport.ListenerFuncs{
		Message: s.route,
		Close:   s.markClosed,
	})

	return s
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *Server) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("Registering tool", "tool", tool.Name)
	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version.
func (s *Server) Version() string {
	return s.version
}

// ListTools returns the registered tools sorted by name.
func (s *Server) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t.tool)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// CallTool executes a tool in-process. Failures are reported in the result
// with IsError set, never as an error value.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	args, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: args},
	})
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	if result == nil {
		return &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	return result
}

// MCPServer builds an official MCP server carrying the registered tools.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tools {
		srv.AddTool(t.tool, t.handler)
	}

	return srv
}

// Close stops routing adapter responses and fails pending tool calls.
// It does not close the adapter.
func (s *Server) Close() {
	s.unsubscribe()
	s.markClosed()
}

func (s *Server) markClosed() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// route hands a response to the tool call waiting for its id.
func (s *Server) route(data []byte) {
	msg, err := message.Parse(data)
	if err != nil {
		s.log.Debug("Ignoring undecodable adapter message", "error", err)

		return
	}

	resp, ok := msg.(*message.Response)
	if !ok {
		return
	}

	s.waitersMu.Lock()
	ch, exists := s.waiters[resp.ID]
	delete(s.waiters, resp.ID)
	s.waitersMu.Unlock()

	if exists {
		ch <- resp
	}
}

// roundTrip sends a command and waits for its response.
func (s *Server) roundTrip(ctx context.Context, method string, params json.RawMessage, sessionID string) (*message.Response, error) {
	cmd := &message.Command{
		ID:        s.nextID.Add(1),
		Method:    method,
		Params:    params,
		SessionID: sessionID,
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	ch := make(chan *message.Response, 1)

	s.waitersMu.Lock()
	s.waiters[cmd.ID] = ch
	s.waitersMu.Unlock()

	defer func() {
		s.waitersMu.Lock()
		delete(s.waiters, cmd.ID)
		s.waitersMu.Unlock()
	}()

	s.log.Debug("Sending tool command", "id", cmd.ID, "method", method)

	if err := s.adapter.Send(ctx, data); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-s.closed:
		return nil, fmt.Errorf("adapter closed before %s replied", method)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
