// Package pipeline composes the store, the TTS engine, the demo runner and
// the ffmpeg steps into the render jobs the worker executes.
package pipeline

import (
	"sort"
	"strings"

	"github.com/voforge/voforge-api/timeline"
)

const (
	defaultSegmentTailMS = 3000
	minSegmentLengthMS   = 500
)

// Segment is one narration event scheduled onto the video.
type Segment struct {
	Index          int
	EventID        string
	StartMS        int64
	EndMS          int64
	Text           string
	VoiceProfileID string
}

func (s Segment) DurationMS() int64 {
	return s.EndMS - s.StartMS
}

// BuildSegments turns narration events into render segments: drop empty
// text, sort by (start_ms, id), clamp starts into the video, and repair
// end times (next event's start, +3s default, 500ms floor).
func BuildSegments(tl timeline.Timeline, videoDurationMS int64) []Segment {
	events := make([]timeline.NarrationEvent, 0, len(tl.NarrationEvents))
	for _, event := range tl.NarrationEvents {
		if strings.TrimSpace(event.Text) == "" {
			continue
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartMS != events[j].StartMS {
			return events[i].StartMS < events[j].StartMS
		}
		return events[i].ID < events[j].ID
	})

	var segments []Segment
	for i, event := range events {
		start := event.StartMS
		if start < 0 {
			start = 0
		}
		if videoDurationMS > 0 && start >= videoDurationMS {
			continue
		}

		end := event.EndMS
		if end <= start {
			if i+1 < len(events) && events[i+1].StartMS > start {
				end = events[i+1].StartMS
			} else {
				end = start + defaultSegmentTailMS
			}
			if videoDurationMS > 0 && end > videoDurationMS {
				end = videoDurationMS
			}
		}
		if end < start+minSegmentLengthMS {
			end = start + minSegmentLengthMS
		}

		voiceProfile := event.VoiceProfileID
		if voiceProfile == "" {
			voiceProfile = timeline.DefaultVoiceProfileID
		}
		segments = append(segments, Segment{
			Index:          len(segments),
			EventID:        event.ID,
			StartMS:        start,
			EndMS:          end,
			Text:           strings.TrimSpace(event.Text),
			VoiceProfileID: voiceProfile,
		})
	}
	return segments
}
