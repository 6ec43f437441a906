package chat

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/invopop/jsonschema"
)

// validateArguments checks parsed tool arguments against the tool's
// parameter schema: every required property must be present and every
// known property must match its declared primitive type. Properties the
// schema does not declare pass through untouched; deep validation of
// nested objects is the tool's own job.
func validateArguments(schema *jsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required parameter %q", name)
		}
	}

	if schema.Properties == nil {
		return nil
	}
	for name, value := range args {
		prop, ok := schema.Properties.Get(name)
		if !ok || prop == nil || prop.Type == "" {
			continue
		}
		if err := checkType(prop.Type, value); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}

// checkType matches a decoded JSON value against a schema type keyword.
func checkType(schemaType string, value any) error {
	if value == nil {
		// JSON null is accepted for any declared type; tools that
		// care reject it themselves.
		return nil
	}

	switch schemaType {
	case "string":
		if _, ok := value.(string); !ok {
			return typeMismatch(schemaType, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeMismatch(schemaType, value)
		}
	case "number":
		if !isJSONNumber(value) {
			return typeMismatch(schemaType, value)
		}
	case "integer":
		f, ok := asFloat(value)
		if !ok || f != math.Trunc(f) {
			return typeMismatch(schemaType, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return typeMismatch(schemaType, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return typeMismatch(schemaType, value)
		}
	}
	return nil
}

func typeMismatch(want string, got any) error {
	return fmt.Errorf("expected %s, got %T", want, got)
}

func isJSONNumber(value any) bool {
	_, ok := asFloat(value)
	return ok
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
