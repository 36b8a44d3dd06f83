package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avezard/epigraph/internal/tools"
)

// NewServer creates an MCP server exposing tools from the registry.
// If filter is non-empty, only the named tools are exposed.
func NewServer(registry *tools.Registry, filter []string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "epigraph",
		Version: "0.1.0",
	}, nil)

	allowed := make(map[string]bool, len(filter))
	for _, name := range filter {
		allowed[name] = true
	}

	for _, name := range registry.ToolNames() {
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		spec := registry.Spec(name)
		if spec == nil {
			continue
		}

		mcpTool := toolSpecToMCPTool(spec)
		toolName := name

		server.AddTool(mcpTool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args := string(req.Params.Arguments)
			// Execute runs schema validation before the handler
			result, err := registry.Execute(ctx, toolName, args)
			if err != nil {
				slog.Debug("mcp tool error", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", name)
	}

	return server
}
