package gemini

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire/provider"
	"github.com/chatwire/chatwire/wire"
)

func TestDecodeFrame_ContentDelta(t *testing.T) {
	a := New()

	chunk, err := a.DecodeFrame(wire.Frame{
		Data: []byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]},"index":0}]}`),
	})

	require.NoError(t, err)
	assert.Equal(t, "Hel", chunk.Delta)
	assert.False(t, chunk.Done)
}

func TestDecodeFrame_FunctionCall(t *testing.T) {
	a := New()

	chunk, err := a.DecodeFrame(wire.Frame{
		Data: []byte(`{"candidates":[{"content":{"role":"model","parts":[` +
			`{"functionCall":{"name":"get_weather","args":{"location":"Tokyo"}}}]},"index":0}]}`),
	})

	require.NoError(t, err)
	require.Len(t, chunk.ToolCallDeltas, 1)
	assert.Equal(t, 0, chunk.ToolCallDeltas[0].Index)
	assert.Equal(t, "get_weather", chunk.ToolCallDeltas[0].Name)
	assert.Equal(t, "get_weather", chunk.ToolCallDeltas[0].ID)
	assert.JSONEq(t, `{"location":"Tokyo"}`, chunk.ToolCallDeltas[0].ArgumentsDelta)
}

func TestToolResponseRoundTrip(t *testing.T) {
	a := New()

	chunk, err := a.DecodeFrame(wire.Frame{
		Data: []byte(`{"candidates":[{"content":{"parts":[` +
			`{"functionCall":{"name":"get_time","args":{"zone":"UTC"}}}]}}]}`),
	})
	require.NoError(t, err)
	require.Len(t, chunk.ToolCallDeltas, 1)
	call := chunk.ToolCallDeltas[0]

	// Carrying the decoded call id back as the tool message's ToolID must
	// produce a functionResponse keyed by the function name.
	data, err := a.EncodeRequest(&provider.Request{
		Model: "gemini-2.0-flash",
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: "What time is it?"},
			{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{
				{ID: call.ID, Name: call.Name, Arguments: call.ArgumentsDelta},
			}},
			{Role: provider.RoleTool, ToolID: call.ID, Content: `{"time":"12:00"}`},
		},
	})
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(data, &req))
	contents := req["contents"].([]any)
	require.Len(t, contents, 3)
	resp := contents[2].(map[string]any)["parts"].([]any)[0].(map[string]any)["functionResponse"].(map[string]any)
	assert.Equal(t, "get_time", resp["name"])
}

func TestDecodeFrame_IndexesSpanFrames(t *testing.T) {
	a := New()

	first, err := a.DecodeFrame(wire.Frame{
		Data: []byte(`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"one"}}]}}]}`),
	})
	require.NoError(t, err)

	second, err := a.DecodeFrame(wire.Frame{
		Data: []byte(`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"two"}}]}}]}`),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, first.ToolCallDeltas[0].Index)
	assert.Equal(t, 1, second.ToolCallDeltas[0].Index)
	assert.Equal(t, "{}", first.ToolCallDeltas[0].ArgumentsDelta)
}

func TestDecodeFrame_FinishReasonIsTerminal(t *testing.T) {
	// No sentinel frame follows; the finishReason payload ends the stream.
	a := New()

	chunk, err := a.DecodeFrame(wire.Frame{
		Data: []byte(`{"candidates":[{"content":{"parts":[{"text":" end"}]},"finishReason":"STOP"}]}`),
	})

	require.NoError(t, err)
	assert.True(t, chunk.Done)
	assert.Equal(t, " end", chunk.Delta)
	assert.Equal(t, provider.FinishReasonStop, chunk.FinishReason)
}

func TestDecodeFrame_FinishReasons(t *testing.T) {
	tests := []struct {
		name       string
		reason     string
		priorCall  bool
		wantFinish provider.FinishReason
	}{
		{"stop", "STOP", false, provider.FinishReasonStop},
		{"max tokens", "MAX_TOKENS", false, provider.FinishReasonLength},
		{"stop after function call", "STOP", true, provider.FinishReasonToolCalls},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			if tt.priorCall {
				_, err := a.DecodeFrame(wire.Frame{
					Data: []byte(`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"f"}}]}}]}`),
				})
				require.NoError(t, err)
			}

			chunk, err := a.DecodeFrame(wire.Frame{
				Data: []byte(`{"candidates":[{"finishReason":"` + tt.reason + `"}]}`),
			})
			require.NoError(t, err)
			assert.True(t, chunk.Done)
			assert.Equal(t, tt.wantFinish, chunk.FinishReason)
		})
	}
}

func TestDecodeFrame_EmptyCandidates(t *testing.T) {
	a := New()

	chunk, err := a.DecodeFrame(wire.Frame{Data: []byte(`{"candidates":[]}`)})

	require.NoError(t, err)
	assert.Empty(t, chunk.Delta)
	assert.False(t, chunk.Done)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	a := New()

	_, err := a.DecodeFrame(wire.Frame{Data: []byte(`{"candidates": nope`)})

	var malformed *provider.MalformedFrameError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "gemini", malformed.Provider)
}

func TestEncodeRequest(t *testing.T) {
	a := New()
	temp := 0.5

	data, err := a.EncodeRequest(&provider.Request{
		Model:       "gemini-2.0-flash",
		Temperature: &temp,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "Be brief."},
			{Role: provider.RoleUser, Content: "hi"},
			{Role: provider.RoleAssistant, Content: "", ToolCalls: []provider.ToolCall{
				{ID: "get_time", Name: "get_time", Arguments: `{"zone":"UTC"}`},
			}},
			{Role: provider.RoleTool, ToolID: "get_time", Content: `{"time":"12:00"}`},
		},
		Tools: []provider.ToolDef{
			{Name: "get_time", Description: "Current time", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
	})
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(data, &req))

	system := req["systemInstruction"].(map[string]any)
	parts := system["parts"].([]any)
	assert.Equal(t, "Be brief.", parts[0].(map[string]any)["text"])

	contents := req["contents"].([]any)
	require.Len(t, contents, 3)

	model := contents[1].(map[string]any)
	assert.Equal(t, "model", model["role"])
	call := model["parts"].([]any)[0].(map[string]any)["functionCall"].(map[string]any)
	assert.Equal(t, "get_time", call["name"])

	// Function responses travel under the user role.
	toolTurn := contents[2].(map[string]any)
	assert.Equal(t, "user", toolTurn["role"])
	resp := toolTurn["parts"].([]any)[0].(map[string]any)["functionResponse"].(map[string]any)
	assert.Equal(t, "get_time", resp["name"])
	assert.Equal(t, "12:00", resp["response"].(map[string]any)["time"])

	config := req["generationConfig"].(map[string]any)
	assert.Equal(t, 0.5, config["temperature"])
	assert.Contains(t, req, "tools")
}

func TestEncodeRequest_NoConfigWhenUnset(t *testing.T) {
	a := New()

	data, err := a.EncodeRequest(&provider.Request{
		Model:    "gemini-2.0-flash",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(data, &req))
	assert.NotContains(t, req, "generationConfig")
	assert.NotContains(t, req, "tools")
}
