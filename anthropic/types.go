package anthropic

import "encoding/json"

// messagesRequest is the /v1/messages request payload.
type messagesRequest struct {
	Model         string    `json:"model"`
	Messages      []message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	TopK          *int      `json:"top_k,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Tools         []toolDef `json:"tools,omitempty"`
	Stream        bool      `json:"stream"`
}

// message represents a message in the conversation.
type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart represents a part of message content.
type contentPart struct {
	Type      string       `json:"type"`
	Text      string       `json:"text,omitempty"`
	ID        string       `json:"id,omitempty"`
	Name      string       `json:"name,omitempty"`
	Input     any          `json:"input,omitempty"`
	ToolUseID string       `json:"tool_use_id,omitempty"`
	Content   string       `json:"content,omitempty"` // For tool_result
	Source    *imageSource `json:"source,omitempty"`  // For image parts
}

// imageSource carries base64 image data.
type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// toolDef represents a tool definition.
type toolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// streamEvent is one decoded SSE data payload. The Type field selects
// which of the optional members is populated.
type streamEvent struct {
	Type         string        `json:"type"`
	Index        int           `json:"index"`
	Delta        *eventDelta   `json:"delta,omitempty"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`
}

// contentBlock opens a text or tool_use block.
type contentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// eventDelta carries text deltas, partial tool-argument JSON, or the
// stop reason, depending on the event type.
type eventDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}
