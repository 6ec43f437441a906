// Package wire reassembles raw network bytes into complete protocol frames.
// It supports the two record formats used by chat streaming APIs: one JSON
// object per line (NDJSON, used by Ollama-compatible servers) and
// server-sent events (SSE, used by OpenAI- and Anthropic-compatible servers).
package wire

import (
	"bytes"
	"fmt"
)

// Frame is one complete, self-delimited protocol record.
// Done marks a terminal sentinel (such as the OpenAI "[DONE]" record) that
// carries no payload of its own.
type Frame struct {
	Data []byte
	Done bool
}

// Framer turns an arbitrarily fragmented byte stream into complete frames.
// Feed appends a chunk to the pending buffer and returns every frame that the
// chunk completed; a frame boundary may fall anywhere inside a chunk,
// including inside a multi-byte UTF-8 sequence. Close reports whether the
// stream ended cleanly.
type Framer interface {
	// Feed appends p to the pending buffer and returns all newly
	// completed frames, in order.
	Feed(p []byte) []Frame

	// Close checks the remaining buffer. A non-whitespace remainder means
	// the stream ended mid-record and yields a *TruncatedFrameError.
	Close() error
}

// TruncatedFrameError reports a stream that ended in the middle of a record.
type TruncatedFrameError struct {
	Remainder []byte
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("stream ended mid-frame with %d unterminated bytes", len(e.Remainder))
}

// doneSentinel is the literal terminal payload sent by OpenAI-style streams.
var doneSentinel = []byte("[DONE]")

// ndjsonFramer splits on newlines; every non-empty line is one frame.
type ndjsonFramer struct {
	buf []byte
}

// NewNDJSONFramer returns a Framer for newline-delimited JSON streams.
func NewNDJSONFramer() Framer {
	return &ndjsonFramer{}
}

func (f *ndjsonFramer) Feed(p []byte) []Frame {
	f.buf = append(f.buf, p...)

	var frames []Frame
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return frames
		}
		line := bytes.TrimSpace(f.buf[:i])
		f.buf = f.buf[i+1:]
		if len(line) == 0 {
			continue
		}
		if bytes.Equal(line, doneSentinel) {
			frames = append(frames, Frame{Done: true})
			continue
		}
		data := make([]byte, len(line))
		copy(data, line)
		frames = append(frames, Frame{Data: data})
	}
}

func (f *ndjsonFramer) Close() error {
	if rest := bytes.TrimSpace(f.buf); len(rest) > 0 {
		return &TruncatedFrameError{Remainder: rest}
	}
	f.buf = nil
	return nil
}

// sseFramer splits on blank lines. Within one event the data: lines are
// concatenated, comment lines (leading ':') and field labels such as
// "event:" are dropped, per the SSE wire format.
type sseFramer struct {
	buf []byte
}

// NewSSEFramer returns a Framer for server-sent-event streams.
func NewSSEFramer() Framer {
	return &sseFramer{}
}

func (f *sseFramer) Feed(p []byte) []Frame {
	f.buf = append(f.buf, p...)

	var frames []Frame
	for {
		end, skip := findEventEnd(f.buf)
		if end < 0 {
			return frames
		}
		event := f.buf[:end]
		f.buf = f.buf[end+skip:]

		if frame, ok := parseEvent(event); ok {
			frames = append(frames, frame)
		}
	}
}

// findEventEnd locates the first blank-line terminator. A line ending may
// be \n or \r\n, and the two may mix within one stream, so the terminator
// is any newline followed directly by another (optionally \r-prefixed)
// newline. Returns the event length and the terminator length, or (-1, 0)
// when no complete event is buffered yet.
func findEventEnd(buf []byte) (end, skip int) {
	for i := 0; i < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}
		rest := buf[i+1:]
		switch {
		case len(rest) > 0 && rest[0] == '\n':
			return i, 2
		case len(rest) > 1 && rest[0] == '\r' && rest[1] == '\n':
			return i, 3
		}
	}
	return -1, 0
}

// parseEvent extracts the data payload from one SSE event record.
func parseEvent(event []byte) (Frame, bool) {
	var data []byte
	for _, line := range bytes.Split(event, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		rest, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			// Some other field, e.g. "event: message_start". The
			// payload we care about always rides on data lines.
			continue
		}
		rest = bytes.TrimPrefix(rest, []byte(" "))
		if len(data) > 0 {
			data = append(data, '\n')
		}
		data = append(data, rest...)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Frame{}, false
	}
	if bytes.Equal(trimmed, doneSentinel) {
		return Frame{Done: true}, true
	}
	return Frame{Data: trimmed}, true
}

func (f *sseFramer) Close() error {
	if rest := bytes.TrimSpace(f.buf); len(rest) > 0 {
		return &TruncatedFrameError{Remainder: rest}
	}
	f.buf = nil
	return nil
}
