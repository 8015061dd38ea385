package demo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/voforge/voforge-api/timeline"
)

var supportedActions = map[string]bool{
	"goto":  true,
	"click": true,
	"fill":  true,
	"press": true,
	"wait":  true,
}

const (
	MinActionTimeoutMS     = 100
	MaxActionTimeoutMS     = 120000
	DefaultActionTimeoutMS = 10000
	MinActionRetries       = 0
	MaxActionRetries       = 3
	DefaultActionRetries   = 1
	MaxWaitMS              = 120000
)

// Action is a validated, execution-ready browser action.
type Action struct {
	ID          string
	AtMS        int64
	Action      string
	Target      string
	Args        map[string]interface{}
	TimeoutMS   int64
	Retries     int
	SourceIndex int
}

// ValidationError reports which action failed validation and why.
type ValidationError struct {
	Message  string `json:"message"`
	Index    int    `json:"action_index"`
	ActionID string `json:"action_id,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.ActionID != "" {
		return fmt.Sprintf("%s (action_index=%d, action_id=%s)", e.Message, e.Index, e.ActionID)
	}
	return fmt.Sprintf("%s (action_index=%d)", e.Message, e.Index)
}

func newValidationError(message string, index int, actionID string) *ValidationError {
	return &ValidationError{Message: message, Index: index, ActionID: actionID}
}

func intFromAny(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func parseBoundedInt(value interface{}, fieldName string, index int, actionID string, minimum, maximum, def int64, hasDefault bool) (int64, error) {
	if value == nil {
		if hasDefault {
			return def, nil
		}
		return 0, newValidationError(fmt.Sprintf("%s is required", fieldName), index, actionID)
	}
	parsed, ok := intFromAny(value)
	if !ok {
		return 0, newValidationError(fmt.Sprintf("%s must be an integer", fieldName), index, actionID)
	}
	if parsed < minimum {
		return 0, newValidationError(fmt.Sprintf("%s must be >= %d", fieldName, minimum), index, actionID)
	}
	if maximum >= 0 && parsed > maximum {
		return 0, newValidationError(fmt.Sprintf("%s must be <= %d", fieldName, maximum), index, actionID)
	}
	return parsed, nil
}

// ParseActionEvents validates a timeline's action events and returns them in
// deterministic execution order: (at_ms, source order, id).
func ParseActionEvents(tl timeline.Timeline) ([]Action, error) {
	parsed := make([]Action, 0, len(tl.ActionEvents))
	seenIDs := map[string]bool{}

	for idx, raw := range tl.ActionEvents {
		actionID := raw.ID
		if actionID == "" {
			actionID = fmt.Sprintf("a%d", idx+1)
		}
		actionID = strings.TrimSpace(actionID)
		if actionID == "" {
			return nil, newValidationError("action id must be non-empty", idx, actionID)
		}
		if seenIDs[actionID] {
			return nil, newValidationError("duplicate action id", idx, actionID)
		}
		seenIDs[actionID] = true

		actionType := strings.ToLower(strings.TrimSpace(raw.Action))
		if !supportedActions[actionType] {
			name := actionType
			if name == "" {
				name = "<empty>"
			}
			return nil, newValidationError(fmt.Sprintf("unsupported action '%s'", name), idx, actionID)
		}

		if raw.AtMS < 0 {
			return nil, newValidationError("action at_ms must be >= 0", idx, actionID)
		}

		args := map[string]interface{}{}
		for k, v := range raw.Args {
			args[k] = v
		}

		var timeoutRaw interface{}
		if raw.TimeoutMS != nil {
			timeoutRaw = *raw.TimeoutMS
		} else if v, ok := args["timeout_ms"]; ok {
			timeoutRaw = v
		}
		timeoutMS, err := parseBoundedInt(timeoutRaw, "action timeout_ms", idx, actionID,
			MinActionTimeoutMS, MaxActionTimeoutMS, DefaultActionTimeoutMS, true)
		if err != nil {
			return nil, err
		}

		var retriesRaw interface{}
		if raw.Retries != nil {
			retriesRaw = *raw.Retries
		} else if v, ok := args["retries"]; ok {
			retriesRaw = v
		}
		retries, err := parseBoundedInt(retriesRaw, "action retries", idx, actionID,
			MinActionRetries, MaxActionRetries, DefaultActionRetries, true)
		if err != nil {
			return nil, err
		}

		target := ""
		switch actionType {
		case "goto", "click", "fill", "press":
			target = strings.TrimSpace(raw.Target)
			if target == "" {
				return nil, newValidationError("action requires a non-empty target", idx, actionID)
			}
		}
		if actionType == "goto" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			return nil, newValidationError("goto action target must start with http:// or https://", idx, actionID)
		}

		if actionType == "fill" {
			fillValue, present := args["value"]
			if !present {
				return nil, newValidationError("fill action requires args.value", idx, actionID)
			}
			switch fillValue.(type) {
			case string, bool, int, int64, float64:
			default:
				return nil, newValidationError("fill action args.value must be string/number/bool", idx, actionID)
			}
		}

		if actionType == "press" {
			key, _ := args["key"].(string)
			if strings.TrimSpace(key) == "" {
				return nil, newValidationError("press action requires non-empty args.key", idx, actionID)
			}
			args["key"] = strings.TrimSpace(key)
		}

		if actionType == "wait" {
			waitMS, err := parseBoundedInt(args["ms"], "wait action args.ms", idx, actionID, 0, MaxWaitMS, 0, false)
			if err != nil {
				return nil, err
			}
			args["ms"] = waitMS
		}

		parsed = append(parsed, Action{
			ID:          actionID,
			AtMS:        raw.AtMS,
			Action:      actionType,
			Target:      target,
			Args:        args,
			TimeoutMS:   timeoutMS,
			Retries:     int(retries),
			SourceIndex: idx,
		})
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		if parsed[i].AtMS != parsed[j].AtMS {
			return parsed[i].AtMS < parsed[j].AtMS
		}
		if parsed[i].SourceIndex != parsed[j].SourceIndex {
			return parsed[i].SourceIndex < parsed[j].SourceIndex
		}
		return parsed[i].ID < parsed[j].ID
	})
	return parsed, nil
}
