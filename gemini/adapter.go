// Package gemini provides a wire adapter for the Gemini streamGenerateContent
// SSE protocol (alt=sse). There is no terminal sentinel: the last data
// payload carries a finishReason and the connection then closes.
package gemini

import (
	"encoding/json"

	"github.com/chatwire/chatwire/provider"
	"github.com/chatwire/chatwire/wire"
)

func init() {
	provider.Register("gemini", func() (provider.Adapter, error) {
		return New(), nil
	})
}

// Adapter implements provider.Adapter for the Gemini protocol. Function
// calls arrive as complete args objects, one per part, so each becomes a
// single fragment with an arrival-order index.
type Adapter struct {
	nextIndex int
}

// New creates a new Gemini adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return "gemini"
}

// NewFramer returns an SSE frame reassembler.
func (a *Adapter) NewFramer() wire.Framer {
	return wire.NewSSEFramer()
}

// EncodeRequest implements provider.Adapter.
func (a *Adapter) EncodeRequest(req *provider.Request) ([]byte, error) {
	apiReq := &generateContentRequest{}

	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil ||
		req.TopK != nil || len(req.StopSequences) > 0 {
		apiReq.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
			TopK:            req.TopK,
			StopSequences:   req.StopSequences,
		}
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			apiReq.SystemInstruction = &content{
				Parts: []part{{Text: msg.Content}},
			}
		case provider.RoleTool:
			// Function responses travel under the user role. Gemini
			// correlates by function name, so the call id must carry it.
			apiReq.Contents = append(apiReq.Contents, content{
				Role:  "user",
				Parts: []part{{FunctionResponse: &functionResponse{
					Name:     msg.ToolID,
					Response: toolResponse(msg.Content),
				}}},
			})
		default:
			apiReq.Contents = append(apiReq.Contents, convertMessage(msg))
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]functionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		apiReq.Tools = []tool{{FunctionDeclarations: decls}}
	}

	return json.Marshal(apiReq)
}

func convertMessage(msg provider.Message) content {
	c := content{Role: convertRole(msg.Role)}

	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if tc.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				args = map[string]any{}
			}
		}
		c.Parts = append(c.Parts, part{
			FunctionCall: &functionCall{Name: tc.Name, Args: args},
		})
	}
	if msg.Content != "" {
		c.Parts = append(c.Parts, part{Text: msg.Content})
	}
	for _, img := range msg.Images {
		c.Parts = append(c.Parts, part{
			InlineData: &inlineData{MIMEType: "image/jpeg", Data: img},
		})
	}
	return c
}

func convertRole(role provider.Role) string {
	if role == provider.RoleAssistant {
		return "model"
	}
	return "user"
}

// toolResponse re-parses a result as JSON when possible so structured
// outputs round-trip; plain text is wrapped as-is.
func toolResponse(result string) any {
	var data any
	if err := json.Unmarshal([]byte(result), &data); err != nil || data == nil {
		return map[string]any{"result": result}
	}
	return data
}

// DecodeFrame implements provider.Adapter.
func (a *Adapter) DecodeFrame(frame wire.Frame) (*provider.StreamChunk, error) {
	if frame.Done {
		return &provider.StreamChunk{Done: true}, nil
	}

	var resp generateContentResponse
	if err := json.Unmarshal(frame.Data, &resp); err != nil {
		return nil, &provider.MalformedFrameError{
			Provider: a.Name(),
			Frame:    frame.Data,
			Cause:    err,
		}
	}
	if len(resp.Candidates) == 0 {
		return &provider.StreamChunk{}, nil
	}

	cand := resp.Candidates[0]
	chunk := &provider.StreamChunk{}

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			chunk.Delta += p.Text
			if p.FunctionCall == nil {
				continue
			}
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil || p.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			// Gemini issues no call ids; the function name is the
			// correlation key a functionResponse must echo back.
			chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, provider.ToolCallDelta{
				Index:          a.nextIndex,
				ID:             p.FunctionCall.Name,
				Name:           p.FunctionCall.Name,
				ArgumentsDelta: string(args),
			})
			a.nextIndex++
		}
	}

	// The finishReason payload is the last of the stream.
	if cand.FinishReason != "" {
		chunk.Done = true
		chunk.FinishReason = convertFinishReason(cand.FinishReason, a.nextIndex > 0)
	}

	return chunk, nil
}

func convertFinishReason(reason string, sawFunctionCalls bool) provider.FinishReason {
	switch {
	case reason == "MAX_TOKENS":
		return provider.FinishReasonLength
	case sawFunctionCalls:
		return provider.FinishReasonToolCalls
	default:
		return provider.FinishReasonStop
	}
}
