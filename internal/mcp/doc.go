// Package mcp exposes an adapter to agents as Model Context Protocol tools.
//
// The Server keeps its own tool registry so tools can be invoked in-process
// with CallTool, and can also mount the same tools on an official MCP SDK
// server for transport-based access (stdio, HTTP, in-memory).
//
// Tools:
//   - cdp_send: sends one CDP command through the adapter and returns the
//     matching response envelope.
//   - cdp_target: returns the Target Descriptor and Session Identifier.
package mcp
