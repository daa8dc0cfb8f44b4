package cdpshim

import (
	"log/slog"

	"github.com/coder/websocket"

	"github.com/wagiedev/cdpshim/internal/cdpconn"
	"github.com/wagiedev/cdpshim/internal/mcp"
	"github.com/wagiedev/cdpshim/internal/wsbridge"
)

type (
	// ChromedpTransport implements chromedp.Transport over an adapter.
	ChromedpTransport = cdpconn.Conn

	// WebSocketHandler serves an adapter to one remote CDP client at a time.
	WebSocketHandler = wsbridge.Handler

	// MCPServer exposes an adapter as Model Context Protocol tools.
	MCPServer = mcp.Server
)

// MCP tool names.
const (
	MCPToolSend   = mcp.ToolSend
	MCPToolTarget = mcp.ToolTarget
)

func loggerOrNop(log *slog.Logger) *slog.Logger {
	if log == nil {
		return NopLogger()
	}

	return log
}

// NewChromedpTransport wraps an adapter as a chromedp.Transport.
func NewChromedpTransport(log *slog.Logger, t *Transport) *ChromedpTransport {
	return cdpconn.New(loggerOrNop(log), t)
}

// NewWebSocketHandler returns an http.Handler bridging WebSocket clients to
// the adapter. accept may be nil.
func NewWebSocketHandler(log *slog.Logger, t *Transport, accept *websocket.AcceptOptions) *WebSocketHandler {
	return wsbridge.NewHandler(loggerOrNop(log), t, accept)
}

// NewMCPServer returns an MCP tool server bound to the adapter.
func NewMCPServer(log *slog.Logger, name, version string, t *Transport) *MCPServer {
	return mcp.NewServer(loggerOrNop(log), name, version, t)
}
