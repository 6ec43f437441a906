// Package openai provides a wire adapter for OpenAI-compatible SSE chat
// streams (the choices/delta envelope, also spoken by OpenRouter and many
// self-hosted gateways).
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/chatwire/chatwire/provider"
	"github.com/chatwire/chatwire/wire"
)

func init() {
	provider.Register("openai", func() (provider.Adapter, error) {
		return New(), nil
	})
}

// Adapter implements provider.Adapter for the OpenAI chat protocol.
// Tool-call arguments arrive as incremental string fragments keyed by an
// explicit index; the terminal signal is the "[DONE]" sentinel frame.
type Adapter struct{}

// New creates a new OpenAI adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return "openai"
}

// NewFramer returns an SSE frame reassembler.
func (a *Adapter) NewFramer() wire.Framer {
	return wire.NewSSEFramer()
}

// EncodeRequest implements provider.Adapter.
func (a *Adapter) EncodeRequest(req *provider.Request) ([]byte, error) {
	apiReq := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Seed:        req.Seed,
		Stop:        req.StopSequences,
		Stream:      true,
	}

	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, convertMessage(msg))
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return json.Marshal(apiReq)
}

func convertMessage(msg provider.Message) message {
	apiMsg := message{Role: string(msg.Role)}

	if msg.Role == provider.RoleTool {
		apiMsg.ToolCallID = msg.ToolID
		apiMsg.Content = msg.Content
		return apiMsg
	}

	for _, tc := range msg.ToolCalls {
		args := tc.Arguments
		if args == "" {
			args = "{}"
		}
		apiMsg.ToolCalls = append(apiMsg.ToolCalls, toolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: functionCall{Name: tc.Name, Arguments: args},
		})
	}

	if len(msg.Images) > 0 {
		parts := []any{}
		if msg.Content != "" {
			parts = append(parts, map[string]any{"type": "text", "text": msg.Content})
		}
		for _, img := range msg.Images {
			parts = append(parts, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": fmt.Sprintf("data:image/jpeg;base64,%s", img),
				},
			})
		}
		apiMsg.Content = parts
	} else if msg.Content != "" || len(apiMsg.ToolCalls) == 0 {
		apiMsg.Content = msg.Content
	}

	return apiMsg
}

// DecodeFrame implements provider.Adapter.
func (a *Adapter) DecodeFrame(frame wire.Frame) (*provider.StreamChunk, error) {
	if frame.Done {
		return &provider.StreamChunk{Done: true}, nil
	}

	var resp streamChunk
	if err := json.Unmarshal(frame.Data, &resp); err != nil {
		return nil, &provider.MalformedFrameError{
			Provider: a.Name(),
			Frame:    frame.Data,
			Cause:    err,
		}
	}

	chunk := &provider.StreamChunk{}
	if len(resp.Choices) == 0 {
		// Usage-only or keep-alive frame.
		return chunk, nil
	}

	ch := resp.Choices[0]
	chunk.Delta = ch.Delta.Content

	for _, tc := range ch.Delta.ToolCalls {
		chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, provider.ToolCallDelta{
			Index:          tc.Index,
			ID:             tc.ID,
			Name:           tc.Function.Name,
			ArgumentsDelta: tc.Function.Arguments,
		})
	}

	if ch.FinishReason != nil && *ch.FinishReason != "" {
		chunk.FinishReason = convertFinishReason(*ch.FinishReason)
	}

	return chunk, nil
}

func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_calls", "function_call":
		return provider.FinishReasonToolCalls
	case "length":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}
