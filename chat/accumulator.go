package chat

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/chatwire/chatwire/provider"
)

// Accumulator merges incremental tool-call fragments into complete calls.
// Fragments sharing an index belong to one call; their argument deltas
// concatenate in arrival order. One Accumulator serves one turn.
type Accumulator struct {
	builders map[int]*callBuilder
}

type callBuilder struct {
	id   string
	name string
	args strings.Builder
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{builders: make(map[int]*callBuilder)}
}

// Add merges one fragment. The first non-empty id and name seen for an
// index win; argument deltas always append.
func (a *Accumulator) Add(d provider.ToolCallDelta) {
	b, ok := a.builders[d.Index]
	if !ok {
		b = &callBuilder{}
		a.builders[d.Index] = b
	}
	if b.id == "" {
		b.id = d.ID
	}
	if b.name == "" {
		b.name = d.Name
	}
	b.args.WriteString(d.ArgumentsDelta)
}

// Len returns the number of in-progress calls.
func (a *Accumulator) Len() int {
	return len(a.builders)
}

// Finalize parses every builder's argument text and returns the completed
// calls in ascending index order. A call whose arguments do not parse as a
// JSON object is dropped and reported as a *ToolArgumentError; the other
// calls still complete. Calls without a vendor-issued id get one derived
// from their index, so replaying the same fragments into a fresh instance
// yields an identical result.
func (a *Accumulator) Finalize() ([]provider.ToolCall, []error) {
	indexes := make([]int, 0, len(a.builders))
	for i := range a.builders {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var calls []provider.ToolCall
	var errs []error
	for _, i := range indexes {
		b := a.builders[i]

		args := strings.TrimSpace(b.args.String())
		if args == "" {
			args = "{}"
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(args), &parsed); err != nil {
			errs = append(errs, &ToolArgumentError{
				Name:  b.name,
				ID:    b.id,
				Index: i,
				Cause: err,
			})
			continue
		}

		id := b.id
		if id == "" {
			id = "call_" + strconv.Itoa(i)
		}
		calls = append(calls, provider.ToolCall{
			ID:        id,
			Name:      b.name,
			Arguments: args,
		})
	}

	a.builders = make(map[int]*callBuilder)
	return calls, errs
}
