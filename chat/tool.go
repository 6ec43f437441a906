package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/chatwire/chatwire/provider"
)

// reflector generates parameter schemas for typed tools. DoNotReference
// inlines all definitions to avoid $ref, which the model APIs expect.
var reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Tool represents an executable tool that the model can call.
// This interface allows for heterogeneous collections of tools.
type Tool interface {
	// Name returns the tool's name as seen by the model.
	Name() string

	// Description returns the tool's description for the model.
	Description() string

	// Parameters returns the JSON schema for the tool's parameters.
	Parameters() *jsonschema.Schema

	// Execute runs the tool with the given JSON arguments.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// TypedTool provides type-safe tool creation with auto-generated schema.
// In is the input type, Out is the output type.
type TypedTool[In any, Out any] struct {
	name        string
	description string
	fn          func(ctx context.Context, in In) (Out, error)
	schema      *jsonschema.Schema
}

// NewTool creates a type-safe tool from a function. The input type In is
// used to generate the JSON schema automatically.
//
// Example:
//
//	type WeatherInput struct {
//	    Location string `json:"location" jsonschema:"required,description=City name"`
//	}
//
//	weatherTool, err := chat.NewTool("get_weather", "Get weather for a city",
//	    func(ctx context.Context, in WeatherInput) (string, error) {
//	        return "22C, sunny", nil
//	    },
//	)
func NewTool[In any, Out any](
	name, description string,
	fn func(ctx context.Context, in In) (Out, error),
) (*TypedTool[In, Out], error) {
	var zero In
	paramSchema := reflector.Reflect(&zero)

	return &TypedTool[In, Out]{
		name:        name,
		description: description,
		fn:          fn,
		schema:      paramSchema,
	}, nil
}

// MustNewTool is like NewTool but panics on error.
// Useful for package-level tool definitions.
func MustNewTool[In any, Out any](
	name, description string,
	fn func(ctx context.Context, in In) (Out, error),
) *TypedTool[In, Out] {
	t, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the tool's name.
func (t *TypedTool[In, Out]) Name() string {
	return t.name
}

// Description returns the tool's description.
func (t *TypedTool[In, Out]) Description() string {
	return t.description
}

// Parameters returns the JSON schema for the tool's parameters.
func (t *TypedTool[In, Out]) Parameters() *jsonschema.Schema {
	return t.schema
}

// Execute runs the tool with the given JSON arguments.
// Implements the Tool interface.
func (t *TypedTool[In, Out]) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var input In
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool arguments: %w", err)
	}
	return t.fn(ctx, input)
}

// ToolRegistry manages a collection of tools. It is populated during client
// construction and read-only afterwards, so streaming needs no locking.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates a new tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds tools to the registry. Later registrations with the same
// name replace earlier ones.
func (r *ToolRegistry) Register(tools ...Tool) {
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	return len(r.tools)
}

// Defs returns wire descriptors for every registered tool, sorted by name
// so encoded requests are deterministic.
func (r *ToolRegistry) Defs() []provider.ToolDef {
	defs := make([]provider.ToolDef, 0, len(r.tools))
	for _, t := range r.tools {
		params, err := json.Marshal(t.Parameters())
		if err != nil {
			params = json.RawMessage(`{"type":"object"}`)
		}
		defs = append(defs, provider.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
