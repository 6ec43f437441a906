package provider

import "encoding/json"

// Request represents a provider-agnostic chat request.
type Request struct {
	Model         string
	Messages      []Message
	Tools         []ToolDef
	Temperature   *float64
	MaxTokens     *int
	TopP          *float64
	TopK          *int
	Seed          *int
	StopSequences []string
}

// Message represents a single message in the conversation. A message is
// immutable once appended to a conversation; the conversation itself is
// owned by the caller.
type Message struct {
	Role      Role
	Content   string
	Images    []string // base64-encoded, in order; encoding is the caller's job
	ToolCalls []ToolCall
	ToolID    string // When Role == RoleTool, the originating call id
}

// Role represents the message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
)

// ToolCall represents a complete tool invocation requested by the model.
// Calls are built incrementally from ToolCallDelta fragments and become
// immutable once the accumulator finalizes them.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object text
}

// ToolCallDelta is a partial tool-call update emitted mid-stream. Deltas
// sharing an index belong to the same call; their argument fragments
// concatenate in arrival order.
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}

// StreamChunk is the unified event produced from one decoded frame.
// Done is set on the terminal event; no chunks follow it.
type StreamChunk struct {
	Delta          string
	ToolCallDeltas []ToolCallDelta
	FinishReason   FinishReason
	Done           bool
}

// ToolDef defines a tool the model can use.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema
}
