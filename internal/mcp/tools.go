package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolSend   = "cdp_send"
	ToolTarget = "cdp_target"
)

// sendArgs is the input of cdp_send.
type sendArgs struct {
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

func sendTool() *mcp.Tool {
	return NewTool(ToolSend, "Send a Chrome DevTools Protocol command to the attached tab and return its response.",
		&jsonschema.Schema{
			Type:     "object",
			Required: []string{"method"},
			Properties: map[string]*jsonschema.Schema{
				"method":    {Type: "string", MinLength: jsonschema.Ptr(1), Description: "CDP method, e.g. Page.navigate"},
				"params":    {Type: "object", Description: "Command parameters"},
				"sessionId": {Type: "string", Description: "Session to scope the command to"},
			},
		})
}

func targetTool() *mcp.Tool {
	return NewTool(ToolTarget, "Describe the attached target and its CDP session id.",
		&jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}})
}

func (s *Server) handleSend(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sendArgs
	if err := ParseArguments(req, &args); err != nil {
		return ErrorResult(err.Error()), nil
	}

	if args.Method == "" {
		return ErrorResult("method is required"), nil
	}

	resp, err := s.roundTrip(ctx, args.Method, args.Params, args.SessionID)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}

	if resp.IsError() {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}, IsError: true}, nil
	}

	return TextResult(string(data)), nil
}

func (s *Server) handleTarget(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(map[string]any{
		"sessionId":  s.adapter.SessionID(),
		"targetInfo": s.adapter.TargetInfo(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal target: %w", err)
	}

	return TextResult(string(data)), nil
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into out.
func ParseArguments(req *mcp.CallToolRequest, out any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}

	if err := json.Unmarshal(req.Params.Arguments, out); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return nil
}
