package chat

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/chatwire/chatwire/fallback"
	"github.com/chatwire/chatwire/provider"
	"github.com/chatwire/chatwire/wire"
)

// StreamEvent is one normalized increment of a model response. Exactly
// one event per stream has Done set, and it is the last one.
type StreamEvent struct {
	// ContentDelta is the next piece of assistant text, if any.
	ContentDelta string

	// ToolCallDeltas are incremental tool-call fragments, if any.
	ToolCallDeltas []provider.ToolCallDelta

	// FinishReason is set when the provider reported one.
	FinishReason provider.FinishReason

	// Done marks the terminal event.
	Done bool
}

// Result is the accumulated response, available once the stream has
// finished cleanly.
type Result struct {
	// Content is the full assistant text.
	Content string

	// ToolCalls are the completed calls in index order.
	ToolCalls []provider.ToolCall

	// FinishReason is the last reason the provider reported.
	FinishReason provider.FinishReason

	// Skipped lists tool calls dropped for unparseable arguments. The
	// calls above are unaffected by these.
	Skipped []error
}

// NetworkInterruptedError reports a response body that failed mid-stream.
// Any partial response is discarded.
type NetworkInterruptedError struct {
	Cause error
}

func (e *NetworkInterruptedError) Error() string {
	return fmt.Sprintf("stream interrupted: %v", e.Cause)
}

func (e *NetworkInterruptedError) Unwrap() error {
	return e.Cause
}

// Stream decodes a raw response body into StreamEvents. Obtain one from
// Client.Stream and iterate Events once.
type Stream struct {
	body    io.ReadCloser
	adapter provider.Adapter
	framer  wire.Framer
	acc     *Accumulator
	parser  *fallback.Parser // nil when tools travel natively
	logger  *slog.Logger

	consumed bool
	content  strings.Builder
	finish   provider.FinishReason
	result   *Result
	err      error
}

// Events returns an iterator over the normalized events. The body is
// closed when iteration ends. After the Done event no further events are
// produced. Check Err after the loop.
//
// Example:
//
//	stream, err := client.Stream(resp.Body)
//	if err != nil {
//	    return err
//	}
//	for ev := range stream.Events() {
//	    fmt.Print(ev.ContentDelta)
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
func (s *Stream) Events() iter.Seq[StreamEvent] {
	return func(yield func(StreamEvent) bool) {
		if s.consumed {
			s.err = ErrStreamConsumed
			return
		}
		s.consumed = true
		defer s.body.Close()

		buf := make([]byte, 4096)
		for {
			n, readErr := s.body.Read(buf)
			if n > 0 {
				for _, frame := range s.framer.Feed(buf[:n]) {
					ev, terminal, ok := s.decode(frame)
					if !ok {
						if s.err != nil {
							return
						}
						continue
					}
					if terminal {
						yield(ev)
						return
					}
					if !s.empty(ev) && !yield(ev) {
						return
					}
				}
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					s.err = &NetworkInterruptedError{Cause: readErr}
					return
				}
				s.finishAtEOF(yield)
				return
			}
		}
	}
}

// decode turns one frame into an event. Malformed frames are logged and
// skipped. terminal is true for the Done event; ok is false for frames
// that produce nothing.
func (s *Stream) decode(frame wire.Frame) (ev StreamEvent, terminal, ok bool) {
	chunk, err := s.adapter.DecodeFrame(frame)
	if err != nil {
		var malformed *provider.MalformedFrameError
		if errors.As(err, &malformed) {
			s.logger.Warn("skipping malformed frame",
				"provider", s.adapter.Name(),
				"error", malformed.Cause,
			)
			return StreamEvent{}, false, false
		}
		s.err = err
		return StreamEvent{}, false, false
	}
	if chunk == nil {
		return StreamEvent{}, false, false
	}

	ev.ContentDelta = chunk.Delta
	ev.ToolCallDeltas = chunk.ToolCallDeltas
	ev.FinishReason = chunk.FinishReason

	if s.parser != nil && ev.ContentDelta != "" {
		visible, deltas := s.parser.Feed(ev.ContentDelta)
		ev.ContentDelta = visible
		ev.ToolCallDeltas = append(ev.ToolCallDeltas, deltas...)
	}

	if chunk.Done {
		return s.terminate(ev), true, true
	}
	s.absorb(ev)
	return ev, false, true
}

// absorb folds an event into the accumulated result state.
func (s *Stream) absorb(ev StreamEvent) {
	s.content.WriteString(ev.ContentDelta)
	for _, d := range ev.ToolCallDeltas {
		s.acc.Add(d)
	}
	if ev.FinishReason != "" {
		s.finish = ev.FinishReason
	}
}

// terminate completes the terminal event: any text the fallback parser was
// holding is released as prose, the accumulated calls are finalized, and
// the result becomes available.
func (s *Stream) terminate(ev StreamEvent) StreamEvent {
	if s.parser != nil {
		ev.ContentDelta += s.parser.Flush()
	}
	ev.Done = true
	s.absorb(ev)

	calls, skipped := s.acc.Finalize()
	s.result = &Result{
		Content:      s.content.String(),
		ToolCalls:    calls,
		FinishReason: s.finish,
		Skipped:      skipped,
	}
	return ev
}

// finishAtEOF handles a body that ended without a terminal frame. A
// partial frame left in the reassembler is fatal; otherwise a terminal
// event is synthesized so every clean stream ends with exactly one Done.
func (s *Stream) finishAtEOF(yield func(StreamEvent) bool) {
	if err := s.framer.Close(); err != nil {
		s.err = err
		return
	}
	yield(s.terminate(StreamEvent{}))
}

func (s *Stream) empty(ev StreamEvent) bool {
	return ev.ContentDelta == "" && len(ev.ToolCallDeltas) == 0 && ev.FinishReason == "" && !ev.Done
}

// Err returns the error that stopped the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Result returns the accumulated response, or nil if the stream has not
// finished cleanly.
func (s *Stream) Result() *Result {
	return s.result
}

// Close releases the underlying body without consuming the rest of the
// stream.
func (s *Stream) Close() error {
	s.consumed = true
	return s.body.Close()
}
