package demo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voforge/voforge-api/timeline"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func TestParseActionEventsDefaultsAndOrdering(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "later", AtMS: 5000, Action: "click", Target: "#submit"},
			{AtMS: 0, Action: "goto", Target: "https://example.com"},
			{ID: "wait1", AtMS: 5000, Action: "wait", Args: map[string]interface{}{"ms": 250.0}},
		},
	}

	actions, err := ParseActionEvents(tl)
	require.NoError(t, err)
	require.Len(t, actions, 3)

	// second input has no id, gets a{index+1}
	require.Equal(t, "a2", actions[0].ID)
	require.Equal(t, "goto", actions[0].Action)
	require.Equal(t, int64(DefaultActionTimeoutMS), actions[0].TimeoutMS)
	require.Equal(t, DefaultActionRetries, actions[0].Retries)

	// ties on at_ms break on source order
	require.Equal(t, "later", actions[1].ID)
	require.Equal(t, "wait1", actions[2].ID)
	require.Equal(t, int64(250), actions[2].Args["ms"])
}

func TestParseActionEventsDuplicateID(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "goto", Target: "https://example.com"},
			{ID: "a1", AtMS: 100, Action: "click", Target: "#x"},
		},
	}

	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "duplicate action id", verr.Message)
	require.Equal(t, 1, verr.Index)
	require.Equal(t, "a1", verr.ActionID)
}

func TestParseActionEventsUnsupportedAction(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "hover", Target: "#x"},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported action 'hover'")
}

func TestParseActionEventsGotoRequiresHTTPTarget(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "goto", Target: "ftp://example.com"},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must start with http:// or https://")
}

func TestParseActionEventsTimeoutBounds(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "click", Target: "#x", TimeoutMS: int64Ptr(50)},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout_ms must be >= 100")

	tl.ActionEvents[0].TimeoutMS = int64Ptr(500000)
	_, err = ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout_ms must be <= 120000")
}

func TestParseActionEventsTimeoutFromArgs(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "click", Target: "#x",
				Args: map[string]interface{}{"timeout_ms": 2500.0}},
		},
	}
	actions, err := ParseActionEvents(tl)
	require.NoError(t, err)
	require.Equal(t, int64(2500), actions[0].TimeoutMS)
}

func TestParseActionEventsRetriesBounds(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "click", Target: "#x", Retries: intPtr(7)},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "retries must be <= 3")
}

func TestParseActionEventsFillRequiresScalarValue(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "fill", Target: "#name"},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fill action requires args.value")

	tl.ActionEvents[0].Args = map[string]interface{}{"value": map[string]interface{}{}}
	_, err = ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "args.value must be string/number/bool")
}

func TestParseActionEventsPressRequiresKey(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "press", Target: "#name",
				Args: map[string]interface{}{"key": "  "}},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "press action requires non-empty args.key")
}

func TestParseActionEventsWaitBounds(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: 0, Action: "wait", Args: map[string]interface{}{"ms": 999999.0}},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "args.ms must be <= 120000")

	tl.ActionEvents[0].Args = map[string]interface{}{}
	_, err = ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "args.ms is required")
}

func TestParseActionEventsNegativeAt(t *testing.T) {
	tl := timeline.Timeline{
		ActionEvents: []timeline.ActionEvent{
			{ID: "a1", AtMS: -5, Action: "click", Target: "#x"},
		},
	}
	_, err := ParseActionEvents(tl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at_ms must be >= 0")
}

func TestNormalizeExecutionMode(t *testing.T) {
	require.Equal(t, ExecutionModePlaywrightRequired, NormalizeExecutionMode(" Playwright_Required ", ExecutionModePlaywrightOptional))
	require.Equal(t, ExecutionModePlaywrightOptional, NormalizeExecutionMode("bogus", ExecutionModePlaywrightOptional))
	require.Equal(t, ExecutionModePlaywrightOptional, NormalizeExecutionMode("", ""))
}

func TestResolveExecutionMode(t *testing.T) {
	require.Equal(t, ExecutionModePlaywrightRequired,
		ResolveExecutionMode("playwright_required", "playwright_optional", "playwright_optional"))
	require.Equal(t, ExecutionModePlaywrightRequired,
		ResolveExecutionMode("", "playwright_required", "playwright_optional"))
	require.Equal(t, ExecutionModePlaywrightOptional,
		ResolveExecutionMode("", "", "playwright_optional"))
}
