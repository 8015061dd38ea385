package timeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsEventsPastDuration(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: 0, Text: "keep"},
		{ID: "n2", StartMS: 70000, Text: "drop"},
	}
	out, err := NormalizeNarrationEvents(events, 60000)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "keep", out[0].Text)
}

func TestNormalizeClampsEndToDuration(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: 58000, EndMS: 65000, Text: "tail"},
	}
	out, err := NormalizeNarrationEvents(events, 60000)
	require.NoError(t, err)
	require.Equal(t, int64(60000), out[0].EndMS)
}

func TestNormalizeEnforcesMinimumDuration(t *testing.T) {
	// Clamping pushes end_ms at or below start_ms, so the minimum kicks in.
	events := []NarrationEvent{
		{ID: "n1", StartMS: 59900, EndMS: 61000, Text: "edge"},
	}
	out, err := NormalizeNarrationEvents(events, 60000)
	require.NoError(t, err)
	require.Equal(t, int64(59900+500), out[0].EndMS)
}

func TestNormalizeUsesNextStartForMissingEnd(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: 1000, Text: "a"},
		{ID: "n2", StartMS: 4000, Text: "b"},
	}
	out, err := NormalizeNarrationEvents(events, 0)
	require.NoError(t, err)
	require.Equal(t, int64(4000), out[0].EndMS)
	require.Equal(t, int64(4000+3000), out[1].EndMS)
}

func TestNormalizeStableOrderForEqualStarts(t *testing.T) {
	events := []NarrationEvent{
		{ID: "x", StartMS: 1000, Text: "first in input"},
		{ID: "y", StartMS: 1000, Text: "second in input"},
	}
	out, err := NormalizeNarrationEvents(events, 0)
	require.NoError(t, err)
	require.Equal(t, "x", out[0].ID)
	require.Equal(t, "y", out[1].ID)
}

func TestNormalizeDeduplicatesIDs(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: 0, EndMS: 1000, Text: "a"},
		{ID: "n1", StartMS: 2000, EndMS: 3000, Text: "b"},
		{ID: "n1", StartMS: 4000, EndMS: 5000, Text: "c"},
	}
	out, err := NormalizeNarrationEvents(events, 0)
	require.NoError(t, err)
	require.Equal(t, "n1", out[0].ID)
	require.Equal(t, "n1_1", out[1].ID)
	require.Equal(t, "n1_2", out[2].ID)
}

func TestNormalizeRejectsEmptyText(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: 0, Text: "   ", Meta: map[string]interface{}{"source_line": 7}},
	}
	_, err := NormalizeNarrationEvents(events, 0)
	require.Error(t, err)

	importErr := err.(*ImportError)
	require.Equal(t, "empty_text", importErr.Code)
	require.Equal(t, 7, importErr.LineNumber)
}

func TestNormalizeErrorsWhenEverythingDropped(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: 99000, Text: "late"},
	}
	_, err := NormalizeNarrationEvents(events, 60000)
	require.Error(t, err)
	require.Equal(t, "empty_output", err.(*ImportError).Code)
}

func TestNormalizeClampsNegativeStart(t *testing.T) {
	events := []NarrationEvent{
		{ID: "n1", StartMS: -500, EndMS: 1000, Text: "a"},
	}
	out, err := NormalizeNarrationEvents(events, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), out[0].StartMS)
}
