// Package mcpserver serves the shop tools over the Model Context Protocol.
// Calls go through the runner's Dispatcher, so argument checking and error
// content match what the model sees in a chat.
package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/runner"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

const (
	ServerName    = "shop-agent"
	ServerVersion = "0.1.0"
	// DefaultCustomer owns the cart for MCP sessions.
	DefaultCustomer = "mcp"
)

type Options struct {
	CustomerID string
}

// New builds an MCP server exposing every tool in reg.
func New(reg *tools.Registry, opts Options) *server.MCPServer {
	customer := opts.CustomerID
	if customer == "" {
		customer = DefaultCustomer
	}
	d := runner.NewDispatcher(reg)
	s := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))
	for _, decl := range reg.Declarations() {
		schema, err := decl.Parameters.MarshalJSON()
		if err != nil {
			logger.WarnX("mcp", "skip tool %s: %v", decl.Name, err)
			continue
		}
		s.AddTool(mcp.NewToolWithRawSchema(decl.Name, decl.Description, schema), handler(d, decl.Name, customer))
	}
	return s
}

func handler(d *runner.Dispatcher, name, customer string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := "{}"
		if raw := req.GetRawArguments(); raw != nil {
			s, err := jsonutil.MarshalString(raw)
			if err != nil {
				return mcp.NewToolResultError("arguments are not serializable"), nil
			}
			args = s
		}
		ctx = memory.WithConversationID(ctx, customer)
		msg := d.Execute(ctx, memory.ToolCall{ID: "mcp-" + name, Name: name, Arguments: args})
		if gjson.Get(msg.Content, "error").IsObject() {
			return mcp.NewToolResultError(msg.Content), nil
		}
		return mcp.NewToolResultText(msg.Content), nil
	}
}

// ServeStdio serves s on in/out until ctx is done or in is closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	logger.InfoX("mcp", "serving tools on stdio")
	return server.NewStdioServer(s).Listen(ctx, in, out)
}
