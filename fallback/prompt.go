package fallback

import (
	"encoding/json"
	"strings"

	"github.com/chatwire/chatwire/provider"
)

// PromptContext renders a system-prompt addendum that teaches a model
// without native function calling how to request tools using the grammar.
// Returns "" when no tools are registered.
func PromptContext(tools []provider.ToolDef, g Grammar) string {
	if len(tools) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nYou have access to the following tools. When you need to use a tool, respond with:\n\n")
	b.WriteString(g.Open)
	b.WriteString(g.NameOpen)
	b.WriteString("tool_name")
	b.WriteString(g.NameClose)
	b.WriteString(g.ArgsOpen)
	b.WriteString(`{"param1": "value1"}`)
	b.WriteString(g.ArgsClose)
	b.WriteString(g.Close)
	b.WriteString("\n\nAvailable tools:\n\n")

	for _, tool := range tools {
		b.WriteString(tool.Name)
		b.WriteString(": ")
		b.WriteString(tool.Description)
		b.WriteString("\n")
		if schema := prettySchema(tool.Parameters); schema != "" {
			b.WriteString("Parameters schema: ")
			b.WriteString(schema)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Only use a tool when the request requires it. After a tool result arrives, present it to the user unless told otherwise.\n")
	return b.String()
}

func prettySchema(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
