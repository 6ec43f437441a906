package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/chatwire/chatwire/capability"
	"github.com/chatwire/chatwire/fallback"
	"github.com/chatwire/chatwire/provider"
)

// Client normalizes one provider/model pair's streaming responses into
// vendor-neutral events. It owns no transport: the caller sends the
// encoded request bytes however it likes and hands the raw response body
// to Stream.
//
// Whether tool use goes over the native wire field or through fallback
// markup is decided once, at construction, from the capability table.
type Client struct {
	providerName string
	model        string
	system       string
	tools        *ToolRegistry
	caps         *capability.Registry
	grammar      fallback.Grammar
	logger       *slog.Logger

	// fallbackActive is fixed for the client's lifetime; mid-conversation
	// switching would desync the prompt contract with the model.
	fallbackActive bool

	temperature   *float64
	maxTokens     *int
	topP          *float64
	topK          *int
	seed          *int
	stopSequences []string
}

// NewClient creates a client for a registered provider.
//
// Example:
//
//	client, err := chat.NewClient("ollama",
//	    chat.WithModel("gemma2"),
//	    chat.WithTools(weatherTool),
//	)
func NewClient(providerName string, opts ...Option) (*Client, error) {
	c := &Client{
		providerName: providerName,
		tools:        NewToolRegistry(),
		caps:         capability.Default(),
		grammar:      fallback.DefaultGrammar(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !provider.IsRegistered(providerName) {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", providerName, provider.Available())
	}
	if c.model == "" {
		return nil, ErrModelRequired
	}

	if c.tools.Len() > 0 {
		native, _ := c.caps.Supports(providerName, c.model)
		c.fallbackActive = !native
	}
	return c, nil
}

// FallbackActive reports whether tool calls for this client travel as
// markup in the content stream rather than the native wire field.
func (c *Client) FallbackActive() bool {
	return c.fallbackActive
}

// Tools returns the client's tool registry.
func (c *Client) Tools() *ToolRegistry {
	return c.tools
}

// EncodeRequest builds the provider's request body for the given
// conversation. The client's system message is prepended unless the
// conversation already starts with one. Under fallback, tool definitions
// are withheld from the wire and a usage prompt is appended to the system
// message instead.
func (c *Client) EncodeRequest(messages []Message) ([]byte, error) {
	adapter, err := provider.Get(c.providerName)
	if err != nil {
		return nil, err
	}

	system := c.system
	rest := messages
	if len(rest) > 0 && rest[0].Role == RoleSystem {
		system = rest[0].Content
		rest = rest[1:]
	}

	req := &provider.Request{
		Model:         c.model,
		Temperature:   c.temperature,
		MaxTokens:     c.maxTokens,
		TopP:          c.topP,
		TopK:          c.topK,
		Seed:          c.seed,
		StopSequences: c.stopSequences,
	}

	if c.tools.Len() > 0 {
		if c.fallbackActive {
			system += fallback.PromptContext(c.tools.Defs(), c.grammar)
		} else {
			req.Tools = c.tools.Defs()
		}
	}

	if system != "" {
		req.Messages = append(req.Messages, SystemMessage(system))
	}
	req.Messages = append(req.Messages, rest...)

	return adapter.EncodeRequest(req)
}

// Stream wraps a raw response body in a decoding pipeline. The body is
// closed when iteration finishes. A fresh adapter backs each stream, so
// adapters may keep per-stream decode state.
func (c *Client) Stream(body io.ReadCloser) (*Stream, error) {
	adapter, err := provider.Get(c.providerName)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		body:    body,
		adapter: adapter,
		framer:  adapter.NewFramer(),
		acc:     NewAccumulator(),
		logger:  c.logger,
	}
	if c.fallbackActive {
		s.parser = fallback.NewParser(c.grammar)
	}
	return s, nil
}

// Execute runs the given tool calls against the client's registry and
// returns their result messages in call order.
func (c *Client) Execute(ctx context.Context, calls []ToolCall) []Message {
	return ExecuteToolCalls(ctx, calls, c.tools)
}
