// Package toolserver maintains the session to the local MCP tool server: it
// connects over streamable HTTP, lists the declared tools for catalog
// normalization and executes individual tool calls.
package toolserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentrouter/logging"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	Logger *logging.RouterLogger
	// ClientName identifies this router in the MCP handshake.
	ClientName string
	// ClientVersion is reported alongside ClientName.
	ClientVersion string
}

// Session is a live connection to one MCP tool server. It satisfies
// dispatch.ToolSession and is safe for concurrent CallTool use.
type Session struct {
	client *client.Client
	logger *logging.RouterLogger
}

// Connect opens and initializes a streamable HTTP session against baseURL.
// The caller owns the session and must Close it.
func Connect(ctx context.Context, baseURL string, optFns ...func(o *SessionOptions)) (*Session, error) {
	opts := SessionOptions{
		Logger:        logging.NewLogger(nil).WithComponent("toolserver"),
		ClientName:    "agentrouter",
		ClientVersion: "1.0.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	mcpClient, err := client.NewStreamableHttpClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    opts.ClientName,
		Version: opts.ClientVersion,
	}
	initResult, err := mcpClient.Initialize(ctx, initReq)
	if err != nil {
		_ = mcpClient.Close()
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}

	opts.Logger.Info("tool server session established",
		"server", initResult.ServerInfo.Name, "version", initResult.ServerInfo.Version)

	return &Session{client: mcpClient, logger: opts.Logger}, nil
}

// ListTools returns the raw tool declarations of the connected server.
func (s *Session) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result, nil
}

// CallTool executes one tool and returns its textual output. A result whose
// first content block is not text is an error; the planning loop can only
// observe text.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	text, err := textContent(result)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	if result.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", name, text)
	}
	return text, nil
}

// Close tears the session down. Safe to call after a failed Connect step.
func (s *Session) Close(context.Context) error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close mcp session: %w", err)
	}
	return nil
}

func textContent(result *mcp.CallToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", fmt.Errorf("result contains no content")
	}
	if _, ok := result.Content[0].(mcp.TextContent); !ok {
		return "", fmt.Errorf("result starts with non-text content")
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), nil
}
