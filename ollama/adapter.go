// Package ollama provides a wire adapter for Ollama-compatible NDJSON chat
// streams.
package ollama

import (
	"encoding/json"

	"github.com/chatwire/chatwire/provider"
	"github.com/chatwire/chatwire/wire"
)

func init() {
	provider.Register("ollama", func() (provider.Adapter, error) {
		return New(), nil
	})
}

// Adapter implements provider.Adapter for the Ollama chat protocol.
// Tool-call arguments arrive as complete JSON objects, one per frame, so
// each call becomes a single fragment; the adapter assigns indexes in
// arrival order across the stream.
type Adapter struct {
	nextIndex int
}

// New creates a new Ollama adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return "ollama"
}

// NewFramer returns an NDJSON frame reassembler.
func (a *Adapter) NewFramer() wire.Framer {
	return wire.NewNDJSONFramer()
}

// EncodeRequest implements provider.Adapter.
func (a *Adapter) EncodeRequest(req *provider.Request) ([]byte, error) {
	apiReq := &chatRequest{
		Model:   req.Model,
		Stream:  true,
		Options: buildOptions(req),
	}

	for _, msg := range req.Messages {
		apiMsg := chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Images:  msg.Images,
		}
		for _, tc := range msg.ToolCalls {
			args := json.RawMessage(tc.Arguments)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, toolCall{
				Function: functionCall{Name: tc.Name, Arguments: args},
			})
		}
		apiReq.Messages = append(apiReq.Messages, apiMsg)
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

// buildOptions collects sampling parameters, returning nil when none are
// set so the "options" key is omitted entirely.
func buildOptions(req *provider.Request) *modelOptions {
	if req.Temperature == nil && req.MaxTokens == nil && req.TopP == nil &&
		req.TopK == nil && req.Seed == nil && len(req.StopSequences) == 0 {
		return nil
	}
	return &modelOptions{
		Temperature: req.Temperature,
		NumPredict:  req.MaxTokens,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Seed:        req.Seed,
		Stop:        req.StopSequences,
	}
}

// DecodeFrame implements provider.Adapter.
func (a *Adapter) DecodeFrame(frame wire.Frame) (*provider.StreamChunk, error) {
	if frame.Done {
		return &provider.StreamChunk{Done: true}, nil
	}

	var resp chatResponse
	if err := json.Unmarshal(frame.Data, &resp); err != nil {
		return nil, &provider.MalformedFrameError{
			Provider: a.Name(),
			Frame:    frame.Data,
			Cause:    err,
		}
	}

	chunk := &provider.StreamChunk{
		Delta: resp.Message.Content,
	}

	for _, tc := range resp.Message.ToolCalls {
		chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, provider.ToolCallDelta{
			Index:          a.nextIndex,
			Name:           tc.Function.Name,
			ArgumentsDelta: string(tc.Function.Arguments),
		})
		a.nextIndex++
	}

	if resp.Done {
		chunk.Done = true
		chunk.FinishReason = convertDoneReason(resp.DoneReason, len(chunk.ToolCallDeltas) > 0 || a.nextIndex > 0)
	}

	return chunk, nil
}

func convertDoneReason(reason string, sawToolCalls bool) provider.FinishReason {
	switch {
	case reason == "length":
		return provider.FinishReasonLength
	case sawToolCalls:
		// Ollama reports "stop" even when the turn ended on tool calls.
		return provider.FinishReasonToolCalls
	default:
		return provider.FinishReasonStop
	}
}
