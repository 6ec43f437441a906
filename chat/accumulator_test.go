package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire/provider"
)

func TestAccumulatorMergesFragments(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "get_weather"})
	acc.Add(provider.ToolCallDelta{Index: 0, ArgumentsDelta: `{"location":`})
	acc.Add(provider.ToolCallDelta{Index: 0, ArgumentsDelta: `"Tokyo"}`})

	calls, errs := acc.Finalize()
	require.Empty(t, errs)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"location":"Tokyo"}`, calls[0].Arguments)
}

func TestAccumulatorFirstIDAndNameWin(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "first"})
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_2", Name: "second"})

	calls, errs := acc.Finalize()
	require.Empty(t, errs)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "first", calls[0].Name)
}

func TestAccumulatorIndexOrder(t *testing.T) {
	// Interleaved fragments for two calls must come out sorted by index,
	// regardless of arrival order.
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 1, ID: "call_b", Name: "beta", ArgumentsDelta: `{}`})
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_a", Name: "alpha", ArgumentsDelta: `{"x":`})
	acc.Add(provider.ToolCallDelta{Index: 0, ArgumentsDelta: `1}`})

	calls, errs := acc.Finalize()
	require.Empty(t, errs)
	require.Len(t, calls, 2)
	assert.Equal(t, "alpha", calls[0].Name)
	assert.Equal(t, "beta", calls[1].Name)
}

func TestAccumulatorEmptyArgumentsBecomeObject(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "ping"})

	calls, errs := acc.Finalize()
	require.Empty(t, errs)
	require.Len(t, calls, 1)
	assert.Equal(t, "{}", calls[0].Arguments)
}

func TestAccumulatorDropsOnlyTheBadCall(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "good", ArgumentsDelta: `{"a":1}`})
	acc.Add(provider.ToolCallDelta{Index: 1, ID: "call_2", Name: "bad", ArgumentsDelta: `{"location":}`})
	acc.Add(provider.ToolCallDelta{Index: 2, ID: "call_3", Name: "also_good", ArgumentsDelta: `{"b":2}`})

	calls, errs := acc.Finalize()
	require.Len(t, errs, 1)
	var argErr *ToolArgumentError
	require.ErrorAs(t, errs[0], &argErr)
	assert.Equal(t, "bad", argErr.Name)
	assert.Equal(t, 1, argErr.Index)

	require.Len(t, calls, 2)
	assert.Equal(t, "good", calls[0].Name)
	assert.Equal(t, "also_good", calls[1].Name)
}

func TestAccumulatorRejectsNonObjectArguments(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "t", ArgumentsDelta: `[1,2]`})

	calls, errs := acc.Finalize()
	assert.Empty(t, calls)
	assert.Len(t, errs, 1)
}

func TestAccumulatorSynthesizesMissingID(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, Name: "t", ArgumentsDelta: `{}`})

	calls, errs := acc.Finalize()
	require.Empty(t, errs)
	require.Len(t, calls, 1)
	// Derived from the index, not random, so replays agree.
	assert.Equal(t, "call_0", calls[0].ID)
}

func TestAccumulatorResetsAfterFinalize(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "t", ArgumentsDelta: `{}`})

	calls, _ := acc.Finalize()
	require.Len(t, calls, 1)

	calls, errs := acc.Finalize()
	assert.Empty(t, calls)
	assert.Empty(t, errs)
	assert.Zero(t, acc.Len())
}

func TestAccumulatorReplayProducesSameResult(t *testing.T) {
	// The second call carries no vendor id, so its id is synthesized;
	// replays must still produce byte-identical call sets.
	fragments := []provider.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "get_weather"},
		{Index: 0, ArgumentsDelta: `{"location":"Par`},
		{Index: 0, ArgumentsDelta: `is"}`},
		{Index: 1, Name: "get_time", ArgumentsDelta: `{"tz":"UTC"}`},
	}

	run := func() []provider.ToolCall {
		acc := NewAccumulator()
		for _, f := range fragments {
			acc.Add(f)
		}
		calls, errs := acc.Finalize()
		require.Empty(t, errs)
		return calls
	}

	assert.Equal(t, run(), run())
}
