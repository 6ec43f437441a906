// Package provider defines the vendor-neutral event shape and the adapter
// contract that maps one vendor wire protocol onto it.
package provider

import (
	"fmt"

	"github.com/chatwire/chatwire/wire"
)

// Adapter translates between the unified request/event shape and one vendor
// protocol family. An adapter is selected once at client construction, never
// per frame. Implementations that track per-stream decode state (such as the
// Anthropic content-block cursor) are not safe for sharing between two
// concurrent streams; construct one adapter per stream via the registry
// factory.
type Adapter interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string

	// NewFramer returns a frame reassembler for the adapter's protocol
	// family (NDJSON or SSE).
	NewFramer() wire.Framer

	// EncodeRequest serializes a unified request into the vendor's
	// payload schema. Unset optional parameters are omitted, not sent
	// as nulls.
	EncodeRequest(req *Request) ([]byte, error)

	// DecodeFrame maps one complete frame to a unified stream chunk.
	// Unknown fields are ignored for forward compatibility. A frame that
	// fails to parse returns a *MalformedFrameError; the caller decides
	// whether to skip it.
	DecodeFrame(frame wire.Frame) (*StreamChunk, error)
}

// MalformedFrameError reports a single frame that could not be decoded.
// The stream itself is still usable; callers typically log and skip.
type MalformedFrameError struct {
	Provider string
	Frame    []byte
	Cause    error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("%s: malformed frame: %v", e.Provider, e.Cause)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Cause
}
