// Package timeline holds the canonical narration timeline model plus the
// importers that turn timestamped scripts, SRT files and raw JSON payloads
// into it.
package timeline

import "encoding/json"

const Version = "1.0"

const DefaultVoiceProfileID = "default"

type NarrationEvent struct {
	ID             string                 `json:"id"`
	StartMS        int64                  `json:"start_ms"`
	EndMS          int64                  `json:"end_ms"`
	Text           string                 `json:"text"`
	VoiceProfileID string                 `json:"voice_profile_id"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
}

type ActionEvent struct {
	ID        string                 `json:"id"`
	AtMS      int64                  `json:"at_ms"`
	Action    string                 `json:"action"`
	Target    string                 `json:"target,omitempty"`
	Args      map[string]interface{} `json:"args"`
	TimeoutMS *int64                 `json:"timeout_ms,omitempty"`
	Retries   *int                   `json:"retries,omitempty"`
}

type Timeline struct {
	TimelineVersion string           `json:"timeline_version"`
	NarrationEvents []NarrationEvent `json:"narration_events"`
	ActionEvents    []ActionEvent    `json:"action_events"`
}

// Empty returns a timeline with no events but valid structure.
func Empty() Timeline {
	return Timeline{
		TimelineVersion: Version,
		NarrationEvents: []NarrationEvent{},
		ActionEvents:    []ActionEvent{},
	}
}

// ApplyDefaults fills structural defaults after unmarshalling: the version
// string, non-nil event slices and per-event voice profile ids.
func (t *Timeline) ApplyDefaults() {
	if t.TimelineVersion == "" {
		t.TimelineVersion = Version
	}
	if t.NarrationEvents == nil {
		t.NarrationEvents = []NarrationEvent{}
	}
	if t.ActionEvents == nil {
		t.ActionEvents = []ActionEvent{}
	}
	for i := range t.NarrationEvents {
		if t.NarrationEvents[i].VoiceProfileID == "" {
			t.NarrationEvents[i].VoiceProfileID = DefaultVoiceProfileID
		}
	}
	for i := range t.ActionEvents {
		if t.ActionEvents[i].Args == nil {
			t.ActionEvents[i].Args = map[string]interface{}{}
		}
	}
}

// Clone returns a deep copy; stored project documents must not alias the
// timelines handed to pipelines.
func (t Timeline) Clone() Timeline {
	raw, err := json.Marshal(t)
	if err != nil {
		return Empty()
	}
	var out Timeline
	if err := json.Unmarshal(raw, &out); err != nil {
		return Empty()
	}
	out.ApplyDefaults()
	return out
}
