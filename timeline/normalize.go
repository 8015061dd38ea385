package timeline

import (
	"fmt"
	"sort"
	"strings"
)

const (
	defaultEventDurationMS = 3000
	minEventDurationMS     = 500
)

type preparedEvent struct {
	source  NarrationEvent
	startMS int64
	endMS   int64
	index   int
}

// NormalizeNarrationEvents sorts imported events by (start_ms, input order),
// fixes missing or inverted end times, clamps everything into the video
// duration window and deduplicates ids. videoDurationMS <= 0 means the
// duration is unknown and no clamping happens.
func NormalizeNarrationEvents(events []NarrationEvent, videoDurationMS int64) ([]NarrationEvent, error) {
	if len(events) == 0 {
		return []NarrationEvent{}, nil
	}

	prepared := make([]preparedEvent, 0, len(events))
	for idx, event := range events {
		text := strings.TrimSpace(event.Text)
		if text == "" {
			lineNo := metaSourceLine(event.Meta)
			return nil, newImportError("empty_text", "narration text cannot be empty", lineNo)
		}

		startMS := event.StartMS
		if startMS < 0 {
			startMS = 0
		}
		prepared = append(prepared, preparedEvent{
			source:  event,
			startMS: startMS,
			endMS:   event.EndMS,
			index:   idx + 1,
		})
	}

	sort.SliceStable(prepared, func(i, j int) bool {
		if prepared[i].startMS != prepared[j].startMS {
			return prepared[i].startMS < prepared[j].startMS
		}
		return prepared[i].index < prepared[j].index
	})

	normalized := make([]NarrationEvent, 0, len(prepared))
	seenIDs := map[string]int{}

	for idx, item := range prepared {
		startMS := item.startMS
		if videoDurationMS > 0 && startMS >= videoDurationMS {
			// Skip lines that start after the video duration window.
			continue
		}

		endMS := item.endMS
		if endMS <= startMS {
			var nextStart int64 = -1
			for _, next := range prepared[idx+1:] {
				if next.startMS > startMS {
					nextStart = next.startMS
					break
				}
			}
			if nextStart >= 0 {
				endMS = nextStart
			} else {
				endMS = startMS + defaultEventDurationMS
			}
		}

		if videoDurationMS > 0 && endMS > videoDurationMS {
			endMS = videoDurationMS
		}
		if endMS <= startMS {
			endMS = startMS + minEventDurationMS
		}

		eventID := item.source.ID
		if eventID == "" {
			eventID = fmt.Sprintf("n%d", idx+1)
		}
		if n, seen := seenIDs[eventID]; seen {
			seenIDs[eventID] = n + 1
			eventID = fmt.Sprintf("%s_%d", eventID, n+1)
		} else {
			seenIDs[eventID] = 0
		}

		voiceProfileID := item.source.VoiceProfileID
		if voiceProfileID == "" {
			voiceProfileID = DefaultVoiceProfileID
		}
		meta := item.source.Meta
		if meta == nil {
			meta = map[string]interface{}{}
		}

		normalized = append(normalized, NarrationEvent{
			ID:             eventID,
			StartMS:        startMS,
			EndMS:          endMS,
			Text:           strings.TrimSpace(item.source.Text),
			VoiceProfileID: voiceProfileID,
			Meta:           meta,
		})
	}

	if len(normalized) == 0 {
		return nil, newImportError("empty_output", "no usable narration events after normalization", 0)
	}
	return normalized, nil
}

func metaSourceLine(meta map[string]interface{}) int {
	if meta == nil {
		return 0
	}
	switch v := meta["source_line"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
