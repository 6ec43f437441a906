package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire/provider"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"required"`
}

func echoTool(t *testing.T) Tool {
	t.Helper()
	return MustNewTool("echo", "Echoes the input text",
		func(ctx context.Context, in echoInput) (string, error) {
			return in.Text, nil
		},
	)
}

func TestExecuteToolCalls(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(echoTool(t))

	calls := []provider.ToolCall{
		{ID: "call_1", Name: "echo", Arguments: `{"text":"hello"}`},
	}

	msgs := ExecuteToolCalls(context.Background(), calls, registry)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleTool, msgs[0].Role)
	assert.Equal(t, "call_1", msgs[0].ToolID)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestExecuteToolCallsUnknownToolDoesNotAbort(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(echoTool(t))

	calls := []provider.ToolCall{
		{ID: "call_1", Name: "no_such_tool", Arguments: `{}`},
		{ID: "call_2", Name: "echo", Arguments: `{"text":"still runs"}`},
	}

	msgs := ExecuteToolCalls(context.Background(), calls, registry)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "tool not found")
	assert.Contains(t, msgs[0].Content, "no_such_tool")
	assert.Equal(t, "still runs", msgs[1].Content)
}

func TestExecuteToolCallsValidationFailure(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(echoTool(t))

	calls := []provider.ToolCall{
		{ID: "call_1", Name: "echo", Arguments: `{"text":42}`},
		{ID: "call_2", Name: "echo", Arguments: `{}`},
	}

	msgs := ExecuteToolCalls(context.Background(), calls, registry)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "Error:")
	assert.Contains(t, msgs[0].Content, "text")
	assert.Contains(t, msgs[1].Content, "missing required parameter")
}

func TestExecuteToolCallsHandlerError(t *testing.T) {
	failing := MustNewTool("fail", "Always fails",
		func(ctx context.Context, in struct{}) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	)
	registry := NewToolRegistry()
	registry.Register(failing)

	msgs := ExecuteToolCalls(context.Background(),
		[]provider.ToolCall{{ID: "call_1", Name: "fail", Arguments: `{}`}}, registry)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: upstream unavailable", msgs[0].Content)
}

func TestExecuteToolCallsMarshalsStructResults(t *testing.T) {
	type report struct {
		Temp int    `json:"temp"`
		Unit string `json:"unit"`
	}
	weather := MustNewTool("weather", "Current weather",
		func(ctx context.Context, in struct{}) (report, error) {
			return report{Temp: 22, Unit: "C"}, nil
		},
	)
	registry := NewToolRegistry()
	registry.Register(weather)

	msgs := ExecuteToolCalls(context.Background(),
		[]provider.ToolCall{{ID: "call_1", Name: "weather", Arguments: `{}`}}, registry)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"temp":22,"unit":"C"}`, msgs[0].Content)
}

func TestExecuteToolCallsRunConcurrentlyInOrder(t *testing.T) {
	// Each call sleeps so that serial execution would reorder nothing but
	// take four times as long; results must still match input order.
	sleepy := MustNewTool("sleepy", "Sleeps then returns its label",
		func(ctx context.Context, in struct {
			Label string `json:"label"`
		}) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return in.Label, nil
		},
	)
	registry := NewToolRegistry()
	registry.Register(sleepy)

	var calls []provider.ToolCall
	for i := 0; i < 4; i++ {
		calls = append(calls, provider.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      "sleepy",
			Arguments: fmt.Sprintf(`{"label":"r%d"}`, i),
		})
	}

	start := time.Now()
	msgs := ExecuteToolCalls(context.Background(), calls, registry)
	elapsed := time.Since(start)

	require.Len(t, msgs, 4)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("call_%d", i), msg.ToolID)
		assert.Equal(t, fmt.Sprintf("r%d", i), msg.Content)
	}
	assert.Less(t, elapsed, 70*time.Millisecond)
}
