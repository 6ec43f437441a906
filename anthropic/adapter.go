// Package anthropic provides a wire adapter for Anthropic-style SSE chat
// streams, where content arrives as typed events scoped to content blocks.
package anthropic

import (
	"encoding/json"
	"errors"

	"github.com/chatwire/chatwire/provider"
	"github.com/chatwire/chatwire/wire"
)

const defaultMaxTokens = 4096

func init() {
	provider.Register("anthropic", func() (provider.Adapter, error) {
		return New(), nil
	})
}

// Adapter implements provider.Adapter for the Anthropic Messages protocol.
// The envelope differs from the choices/delta family in every way that
// matters: tool calls open with a content_block_start event, argument JSON
// arrives as partial_json deltas scoped to a block index, and the terminal
// signal is a message_stop sentinel frame. The adapter keeps a per-stream
// map from block index to unified call index, so it must not be shared
// between concurrent streams.
type Adapter struct {
	blockToCall map[int]int
	nextIndex   int
}

// New creates a new Anthropic adapter.
func New() *Adapter {
	return &Adapter{blockToCall: make(map[int]int)}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return "anthropic"
}

// NewFramer returns an SSE frame reassembler.
func (a *Adapter) NewFramer() wire.Framer {
	return wire.NewSSEFramer()
}

// EncodeRequest implements provider.Adapter.
func (a *Adapter) EncodeRequest(req *provider.Request) ([]byte, error) {
	apiReq := &messagesRequest{
		Model:         req.Model,
		Messages:      make([]message, 0, len(req.Messages)),
		MaxTokens:     defaultMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.StopSequences,
		Stream:        true,
	}
	if req.MaxTokens != nil {
		apiReq.MaxTokens = *req.MaxTokens
	}

	for _, msg := range req.Messages {
		// The system prompt rides on a dedicated request field.
		if msg.Role == provider.RoleSystem {
			apiReq.System = msg.Content
			continue
		}

		apiMsg := message{Role: convertRole(msg.Role)}

		if msg.Role == provider.RoleTool {
			apiMsg.Role = "user"
			apiMsg.Content = []contentPart{{
				Type:      "tool_result",
				ToolUseID: msg.ToolID,
				Content:   msg.Content,
			}}
			apiReq.Messages = append(apiReq.Messages, apiMsg)
			continue
		}

		for _, tc := range msg.ToolCalls {
			var input any
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = tc.Arguments
				}
			}
			apiMsg.Content = append(apiMsg.Content, contentPart{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: input,
			})
		}

		if msg.Content != "" {
			apiMsg.Content = append(apiMsg.Content, contentPart{
				Type: "text",
				Text: msg.Content,
			})
		}

		for _, img := range msg.Images {
			apiMsg.Content = append(apiMsg.Content, contentPart{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      img,
				},
			})
		}

		if len(apiMsg.Content) > 0 {
			apiReq.Messages = append(apiReq.Messages, apiMsg)
		}
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}

	return json.Marshal(apiReq)
}

func convertRole(role provider.Role) string {
	switch role {
	case provider.RoleUser:
		return "user"
	case provider.RoleAssistant:
		return "assistant"
	default:
		return string(role)
	}
}

// DecodeFrame implements provider.Adapter.
func (a *Adapter) DecodeFrame(frame wire.Frame) (*provider.StreamChunk, error) {
	if frame.Done {
		return &provider.StreamChunk{Done: true}, nil
	}

	var event streamEvent
	if err := json.Unmarshal(frame.Data, &event); err != nil {
		return nil, &provider.MalformedFrameError{
			Provider: a.Name(),
			Frame:    frame.Data,
			Cause:    err,
		}
	}

	chunk := &provider.StreamChunk{}

	switch event.Type {
	case "content_block_start":
		if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
			callIndex := a.nextIndex
			a.nextIndex++
			a.blockToCall[event.Index] = callIndex
			chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, provider.ToolCallDelta{
				Index: callIndex,
				ID:    event.ContentBlock.ID,
				Name:  event.ContentBlock.Name,
			})
		}

	case "content_block_delta":
		if event.Delta == nil {
			break
		}
		if event.Delta.Text != "" {
			chunk.Delta = event.Delta.Text
		}
		if event.Delta.PartialJSON != "" {
			callIndex, ok := a.blockToCall[event.Index]
			if !ok {
				// Argument JSON for a block we never saw open; treat
				// the frame as malformed rather than guess an index.
				return nil, &provider.MalformedFrameError{
					Provider: a.Name(),
					Frame:    frame.Data,
					Cause:    errUnknownBlock,
				}
			}
			chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, provider.ToolCallDelta{
				Index:          callIndex,
				ArgumentsDelta: event.Delta.PartialJSON,
			})
		}

	case "content_block_stop":
		delete(a.blockToCall, event.Index)

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			chunk.FinishReason = convertStopReason(event.Delta.StopReason)
		}

	case "message_stop":
		chunk.Done = true
	}

	return chunk, nil
}

var errUnknownBlock = errors.New("input_json_delta for unopened content block")

func convertStopReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_use":
		return provider.FinishReasonToolCalls
	case "max_tokens":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}
