package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chatwire/chatwire/provider"
)

// ExecuteToolCalls runs every call against the registry and returns one
// tool-role message per call, in the same order as the input. Calls run
// concurrently; each result message carries the originating call's id so
// vendors can correlate it.
//
// Failures never abort the batch. An unknown tool, bad arguments, or a
// handler error each produce an error-text result for that call alone,
// letting the model read the failure and retry.
func ExecuteToolCalls(ctx context.Context, calls []provider.ToolCall, registry *ToolRegistry) []provider.Message {
	results := make([]provider.Message, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call provider.ToolCall) {
			defer wg.Done()
			results[i] = ToolMessage(call.ID, executeOne(ctx, call, registry))
		}(i, call)
	}
	wg.Wait()

	return results
}

// executeOne resolves, validates, and runs a single call, rendering any
// failure as the result text.
func executeOne(ctx context.Context, call provider.ToolCall, registry *ToolRegistry) string {
	tool, ok := registry.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Error: %v", &ToolNotFoundError{Name: call.Name})
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return fmt.Sprintf("Error: %v", &ToolArgumentError{
			Name: call.Name, ID: call.ID, Cause: err,
		})
	}
	if err := validateArguments(tool.Parameters(), args); err != nil {
		return fmt.Sprintf("Error: %v", &ToolArgumentError{
			Name: call.Name, ID: call.ID, Cause: err,
		})
	}

	out, err := tool.Execute(ctx, json.RawMessage(call.Arguments))
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return renderResult(out)
}

// renderResult converts a tool's return value to message content. Strings
// pass through; everything else is marshaled to JSON.
func renderResult(out any) string {
	switch v := out.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("Error: failed to encode tool result: %v", err)
		}
		return string(data)
	}
}
