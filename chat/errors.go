package chat

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrModelRequired is returned when WithModel is not specified.
	ErrModelRequired = errors.New("model is required: use WithModel option")

	// ErrStreamConsumed is returned when Events is iterated twice.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// ToolNotFoundError is returned when a tool call names an unregistered tool.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %q", e.Name)
}

// ToolArgumentError reports tool-call arguments that failed to parse as
// JSON or violated the tool's declared parameter set. It is local to one
// call: the accumulator drops the call, the executor synthesizes an error
// result, and in both cases the rest of the turn proceeds.
type ToolArgumentError struct {
	Name  string
	ID    string
	Index int
	Cause error
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("tool call %q (index %d): invalid arguments: %v", e.Name, e.Index, e.Cause)
}

func (e *ToolArgumentError) Unwrap() error {
	return e.Cause
}
