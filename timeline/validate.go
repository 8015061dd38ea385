package timeline

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ValidatePayload checks a raw timeline JSON document against the schema and
// the cross-field rules (unique ids, end_ms > start_ms).
func ValidatePayload(payload []byte) error {
	result, err := timelineSchema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return newImportError("invalid_json", fmt.Sprintf("invalid JSON timeline payload: %s", err), 0)
	}
	if !result.Valid() {
		resultErrors := result.Errors()
		sort.Slice(resultErrors, func(i, j int) bool {
			return resultErrors[i].Field() < resultErrors[j].Field()
		})
		first := resultErrors[0]
		return newImportError(
			"invalid_timeline_schema",
			fmt.Sprintf("timeline schema error at %s: %s", schemaPath(first), first.Description()),
			0,
		)
	}

	var doc struct {
		NarrationEvents []NarrationEvent `json:"narration_events"`
		ActionEvents    []ActionEvent    `json:"action_events"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return newImportError("invalid_json", fmt.Sprintf("invalid JSON timeline payload: %s", err), 0)
	}
	return validateCrossFieldRules(doc.NarrationEvents, doc.ActionEvents)
}

func schemaPath(resErr gojsonschema.ResultError) string {
	field := resErr.Field()
	if field == "(root)" {
		return "$"
	}
	return field
}

func validateCrossFieldRules(narration []NarrationEvent, actions []ActionEvent) error {
	seenNarrationIDs := map[string]bool{}
	for idx, event := range narration {
		if seenNarrationIDs[event.ID] {
			return newImportError("invalid_timeline_schema", fmt.Sprintf("duplicate narration event id: %s", event.ID), 0)
		}
		seenNarrationIDs[event.ID] = true

		if event.EndMS <= event.StartMS {
			return newImportError(
				"invalid_timeline_schema",
				fmt.Sprintf(
					"narration_events[%d] has invalid time range: end_ms (%d) must be greater than start_ms (%d)",
					idx, event.EndMS, event.StartMS,
				),
				0,
			)
		}
	}

	seenActionIDs := map[string]bool{}
	for _, event := range actions {
		if seenActionIDs[event.ID] {
			return newImportError("invalid_timeline_schema", fmt.Sprintf("duplicate action event id: %s", event.ID), 0)
		}
		seenActionIDs[event.ID] = true
	}
	return nil
}

// Parse validates and unmarshals a timeline JSON document.
func Parse(payload []byte) (Timeline, error) {
	if err := ValidatePayload(payload); err != nil {
		return Timeline{}, err
	}
	var t Timeline
	if err := json.Unmarshal(payload, &t); err != nil {
		return Timeline{}, newImportError("invalid_json", fmt.Sprintf("invalid JSON timeline payload: %s", err), 0)
	}
	t.ApplyDefaults()
	return t, nil
}

// ValidateTimeline re-checks an in-memory timeline, used after PATCHes to
// individual events.
func ValidateTimeline(t Timeline) error {
	return validateCrossFieldRules(t.NarrationEvents, t.ActionEvents)
}
