package chat

import (
	"log/slog"

	"github.com/chatwire/chatwire/capability"
	"github.com/chatwire/chatwire/fallback"
)

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model to use (e.g., "gpt-4o", "llama3.2").
func WithModel(name string) Option {
	return func(c *Client) {
		c.model = name
	}
}

// WithSystemMessage sets a system message sent with every request.
func WithSystemMessage(msg string) Option {
	return func(c *Client) {
		c.system = msg
	}
}

// WithTools registers tools the model can call.
func WithTools(tools ...Tool) Option {
	return func(c *Client) {
		c.tools.Register(tools...)
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// WithMaxTokens sets the maximum tokens in the response.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = &n
	}
}

// WithTopP sets the nucleus sampling parameter (0.0 to 1.0).
func WithTopP(p float64) Option {
	return func(c *Client) {
		c.topP = &p
	}
}

// WithTopK limits token selection to the k most probable tokens.
// Note: Not supported by OpenAI.
func WithTopK(k int) Option {
	return func(c *Client) {
		c.topK = &k
	}
}

// WithSeed sets a random seed for reproducibility.
// Note: Not supported by Anthropic.
func WithSeed(seed int) Option {
	return func(c *Client) {
		c.seed = &seed
	}
}

// WithStopSequences sets stop sequences to end generation.
func WithStopSequences(seqs ...string) Option {
	return func(c *Client) {
		c.stopSequences = seqs
	}
}

// WithCapabilities replaces the built-in native-tool-support table.
func WithCapabilities(caps *capability.Registry) Option {
	return func(c *Client) {
		c.caps = caps
	}
}

// WithFallbackGrammar replaces the default tool-call markup grammar used
// when the model lacks native function calling.
func WithFallbackGrammar(g fallback.Grammar) Option {
	return func(c *Client) {
		c.grammar = g
	}
}

// WithLogger sets the logger for stream diagnostics such as skipped
// malformed frames.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
