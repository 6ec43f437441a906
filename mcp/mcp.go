// Package mcp sources chat tools from Model Context Protocol servers, so
// MCP-provided tools can be called through the same streaming pipeline and
// fallback machinery as locally defined ones.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chatwire/chatwire/chat"
)

// Client holds a session with one MCP server.
type Client struct {
	session *mcp.ClientSession
	timeout time.Duration
}

// Option configures the MCP client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout time.Duration
}

// WithTimeout sets the per-call timeout for tool execution.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// NewStdioClient starts the given command and connects to it as an MCP
// server over stdio.
//
// Example:
//
//	client, err := mcp.NewStdioClient(ctx, "./my-mcp-server", nil)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	tools, err := client.Tools(ctx)
func NewStdioClient(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "chatwire",
		Version: "0.1.0",
	}, nil)

	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...),
	}
	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}

	return &Client{
		session: session,
		timeout: cfg.timeout,
	}, nil
}

// Tools lists the server's tools as chat.Tools, ready to pass to
// chat.WithTools. Their schemas take part in argument validation and, for
// models without native function calling, in the fallback prompt.
func (c *Client) Tools(ctx context.Context) ([]chat.Tool, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	tools := make([]chat.Tool, 0, len(result.Tools))
	for i := range result.Tools {
		tools = append(tools, &serverTool{
			client: c,
			tool:   result.Tools[i],
		})
	}
	return tools, nil
}

// Close shuts down the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// serverTool adapts one MCP tool to the chat.Tool interface.
type serverTool struct {
	client *Client
	tool   *mcp.Tool
}

func (t *serverTool) Name() string {
	return t.tool.Name
}

func (t *serverTool) Description() string {
	return t.tool.Description
}

func (t *serverTool) Parameters() *jsonschema.Schema {
	// The MCP input schema is structurally a JSON Schema; round-trip it
	// through JSON rather than mapping field by field.
	data, err := json.Marshal(t.tool.InputSchema)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return &schema
}

func (t *serverTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, t.client.timeout)
	defer cancel()

	var arguments map[string]any
	if err := json.Unmarshal(args, &arguments); err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}

	result, err := t.client.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.tool.Name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("calling MCP tool: %w", err)
	}

	text := renderContent(result.Content)
	if result.IsError {
		return nil, fmt.Errorf("MCP tool error: %s", text)
	}
	return text, nil
}

// renderContent flattens a tool result to text. Non-text items become
// short descriptions; multiple items are joined with newlines.
func renderContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch item := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, item.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s, %d bytes]", item.MIMEType, len(item.Data)))
		case *mcp.EmbeddedResource:
			if item.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", item.Resource.URI))
			} else {
				parts = append(parts, "[Resource: embedded]")
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Tools is a convenience wrapper that connects, lists tools, and returns
// a cleanup function closing the session.
//
// Example:
//
//	tools, cleanup, err := mcp.Tools(ctx, "./my-mcp-server", nil)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
//	client, err := chat.NewClient("ollama",
//	    chat.WithModel("gemma2"),
//	    chat.WithTools(tools...),
//	)
func Tools(ctx context.Context, command string, args []string, opts ...Option) ([]chat.Tool, func() error, error) {
	client, err := NewStdioClient(ctx, command, args, opts...)
	if err != nil {
		return nil, nil, err
	}

	tools, err := client.Tools(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return tools, client.Close, nil
}
